package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"basketwatch/pkg/errorutil"
)

func main() {
	root := newRootCmd(defaultDetectorFactory)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", presentError(err))
		os.Exit(exitCode(err))
	}
}

func newRootCmd(factory detectorFactory) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "basketctl",
		Short:         "Detect orders whose basket value exceeds a threshold",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "./config/config.yaml", "path to config file")

	root.AddCommand(newDetectCmd(&configPath, factory))
	root.AddCommand(newPingCmd(&configPath, factory))

	return root
}

// exitCode 不同错误类别使用不同退出码，便于脚本区分
func exitCode(err error) int {
	var e *errorutil.Error
	if !errors.As(err, &e) {
		return 1
	}
	switch e.Kind {
	case errorutil.KindInvalidInput:
		return 2
	case errorutil.KindDataUnavailable:
		return 3
	case errorutil.KindMalformedResponse, errorutil.KindModelUnavailable:
		return 4
	case errorutil.KindTimeout, errorutil.KindCancelled:
		return 5
	default:
		return 1
	}
}

func presentError(err error) string {
	var e *errorutil.Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	switch e.Kind {
	case errorutil.KindDataUnavailable:
		return "sales warehouse is unavailable: " + e.Message
	case errorutil.KindMalformedResponse:
		return "anomaly report could not be assembled: " + e.Message
	case errorutil.KindModelUnavailable:
		return "explanation model is unavailable: " + e.Message
	case errorutil.KindTimeout:
		return "detection did not finish in time: " + e.Message
	default:
		return e.Message
	}
}
