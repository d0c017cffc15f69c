package domains

import (
	"basketwatch/internal/domains/handlers/basket/detect"
	"basketwatch/internal/framework"
	"basketwatch/internal/model"
	"basketwatch/pkg/logger"
)

// Dependencies Handler 需要的业务依赖
type Dependencies struct {
	Detector detect.Detector
	Notifier detect.Notifier
	Logger   logger.Logger
}

// NewHandlerMap 路由表（ActionType → Handler 构造函数）
func NewHandlerMap(deps Dependencies) map[string]framework.HandlerFactory {
	return map[string]framework.HandlerFactory{
		model.ActionTypeBasketDetect: detect.NewFactory(deps.Detector, deps.Notifier, deps.Logger),
	}
}
