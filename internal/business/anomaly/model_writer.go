package anomaly

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"basketwatch/pkg/errorutil"
)

const modelSystemPrompt = `You explain why retail orders were flagged as high basket value anomalies.
For every order in the input array write one short sentence naming the basket value, the threshold
it exceeds and the likely driver (quantity, unit price or both).
Reply with a JSON array of strings only, one string per order, in the same order as the input.`

// ModelWriterConfig 模型说明生成器配置
type ModelWriterConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// ModelWriter 通过 Chat Completions 生成说明，每次运行只调用一次，不自动重试
type ModelWriter struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewModelWriter 创建模型说明生成器
func NewModelWriter(cfg ModelWriterConfig) *ModelWriter {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &ModelWriter{
		client:  openai.NewClient(opts...),
		model:   model,
		timeout: cfg.Timeout,
	}
}

type modelOrder struct {
	OrderID       string      `json:"order_id"`
	CompanyName   string      `json:"company_name"`
	ProductName   string      `json:"product_name"`
	Quantity      int64       `json:"quantity"`
	PurchasePrice json.Number `json:"purchase_price"`
	BasketValue   json.Number `json:"basket_value"`
}

// Explain 实现 IssueWriter
func (w *ModelWriter) Explain(ctx context.Context, threshold float64, orders []EnrichedOrder) ([]string, error) {
	input := make([]modelOrder, 0, len(orders))
	for _, o := range orders {
		input = append(input, modelOrder{
			OrderID:       o.OrderID,
			CompanyName:   o.CompanyName,
			ProductName:   o.ProductName,
			Quantity:      o.Quantity,
			PurchasePrice: json.Number(o.PurchasePrice.String()),
			BasketValue:   json.Number(o.BasketValue().String()),
		})
	}
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("marshal model input: %w", err)
	}

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	resp, err := w.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(w.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(modelSystemPrompt),
			openai.UserMessage(fmt.Sprintf("Threshold: %.2f\nOrders: %s", threshold, body)),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errorutil.Timeout("model call deadline exceeded", err)
		}
		if errors.Is(err, context.Canceled) {
			return nil, errorutil.Cancelled("model call cancelled", err)
		}
		return nil, errorutil.ModelUnavailable("model call failed", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errorutil.MalformedResponse("model returned no choices", nil)
	}

	return parseExplanations(resp.Choices[0].Message.Content, len(orders))
}

// parseExplanations 解析模型返回的 JSON 字符串数组，允许 ```json 代码块包裹
func parseExplanations(content string, want int) ([]string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var out []string
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, errorutil.MalformedResponse("model output is not a JSON array of strings", err)
	}
	if len(out) != want {
		return nil, errorutil.MalformedResponse(
			fmt.Sprintf("model returned %d explanations for %d orders", len(out), want), nil)
	}
	for i, s := range out {
		if strings.TrimSpace(s) == "" {
			return nil, errorutil.MalformedResponse(fmt.Sprintf("model explanation %d is empty", i), nil)
		}
	}
	return out, nil
}
