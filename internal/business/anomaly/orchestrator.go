package anomaly

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"basketwatch/internal/model"
	"basketwatch/pkg/errorutil"
	"basketwatch/pkg/logger"
)

// State 编排状态
type State string

const (
	StateIdle           State = "IDLE"
	StateFetchingOrders State = "FETCHING_ORDERS"
	StateFetchingNames  State = "FETCHING_NAMES"
	StateFormatting     State = "FORMATTING"
	StateDone           State = "DONE"
	StateFailed         State = "FAILED"
)

// 允许的前进方向，Failed 可以从任何非 Idle 状态进入
var transitions = map[State][]State{
	StateIdle:           {StateFetchingOrders},
	StateFetchingOrders: {StateFetchingNames, StateDone},
	StateFetchingNames:  {StateFormatting},
	StateFormatting:     {StateDone},
}

// Terminal 是否终态
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

const (
	DefaultOrderLimit = 50
	DefaultMaxTurns   = 10
	DefaultRunTimeout = 30 * time.Second
)

// Options 编排策略
type Options struct {
	OrderLimit   int
	MaxThreshold float64 // 0 表示不限制
	MaxTurns     int
	RunTimeout   time.Duration
}

func (o Options) withDefaults() Options {
	if o.OrderLimit <= 0 {
		o.OrderLimit = DefaultOrderLimit
	}
	if o.MaxTurns <= 0 {
		o.MaxTurns = DefaultMaxTurns
	}
	if o.RunTimeout <= 0 {
		o.RunTimeout = DefaultRunTimeout
	}
	return o
}

// Request 一次检测请求
type Request struct {
	Threshold float64
	Limit     int // 0 使用 Options.OrderLimit
}

// RunResult 一次运行的结果
type RunResult struct {
	Threshold float64
	Limit     int
	State     State
	Trail     []State
	Turns     int
	Report    model.AnomalyReport
}

// Orchestrator 驱动 取订单 → 取客户名 → 格式化 的单次流程
// 只持有不可变依赖，可被多个 goroutine 共享
type Orchestrator struct {
	gateway   Gateway
	formatter *Formatter
	opts      Options
	logger    logger.Logger
}

// NewOrchestrator 创建编排器
func NewOrchestrator(gateway Gateway, formatter *Formatter, opts Options, log logger.Logger) *Orchestrator {
	if formatter == nil {
		formatter = NewFormatter(nil)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Orchestrator{
		gateway:   gateway,
		formatter: formatter,
		opts:      opts.withDefaults(),
		logger:    log,
	}
}

// run 单次运行的全部可变状态
type run struct {
	state    State
	trail    []State
	turns    int
	maxTurns int
}

func (r *run) enter(ctx context.Context, next State) error {
	if err := ctx.Err(); err != nil {
		return contextError(err)
	}

	allowed := false
	for _, s := range transitions[r.state] {
		if s == next {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("illegal transition %s -> %s", r.state, next)
	}

	if r.turns >= r.maxTurns {
		return errorutil.Timeout(fmt.Sprintf("turn budget of %d exhausted before %s", r.maxTurns, next), nil)
	}

	r.turns++
	r.state = next
	r.trail = append(r.trail, next)
	return nil
}

func (r *run) result(req Request, report model.AnomalyReport) *RunResult {
	return &RunResult{
		Threshold: req.Threshold,
		Limit:     req.Limit,
		State:     r.state,
		Trail:     r.trail,
		Turns:     r.turns,
		Report:    report,
	}
}

// Run 执行一次检测
// 成功时 State 为 Done，Report 可能为空；失败时 State 为 Failed 且返回分类后的错误，不返回部分结果
func (o *Orchestrator) Run(ctx context.Context, req Request) (*RunResult, error) {
	if req.Limit <= 0 {
		req.Limit = o.opts.OrderLimit
	}
	if err := o.validate(req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, o.opts.RunTimeout)
	defer cancel()

	r := &run{state: StateIdle, trail: []State{StateIdle}, maxTurns: o.opts.MaxTurns}
	report, err := o.drive(ctx, r, req)
	if err != nil {
		e := errorutil.Wrap(err)
		r.state = StateFailed
		r.trail = append(r.trail, StateFailed)
		o.logger.Errorf(logger.WithRunState(ctx, string(StateFailed)),
			"basket detection failed: threshold=%.2f, kind=%s, err=%v", req.Threshold, e.Kind, err)
		return r.result(req, nil), e
	}

	o.logger.Infof(logger.WithRunState(ctx, string(r.state)),
		"basket detection done: threshold=%.2f, anomalies=%d, turns=%d", req.Threshold, len(report), r.turns)
	return r.result(req, report), nil
}

func (o *Orchestrator) drive(ctx context.Context, r *run, req Request) (model.AnomalyReport, error) {
	if err := r.enter(ctx, StateFetchingOrders); err != nil {
		return nil, err
	}
	o.logger.Debugf(logger.WithRunState(ctx, string(r.state)), "fetching orders: threshold=%.2f, limit=%d", req.Threshold, req.Limit)

	orders, err := o.gateway.FetchHighBasketOrders(ctx, req.Threshold, req.Limit)
	if err != nil {
		return nil, gatewayError(ctx, "fetch high basket orders failed", err)
	}

	if len(orders) == 0 {
		if err := r.enter(ctx, StateDone); err != nil {
			return nil, err
		}
		return model.AnomalyReport{}, nil
	}

	if err := r.enter(ctx, StateFetchingNames); err != nil {
		return nil, err
	}
	ids := DistinctCustomerSKs(orders)
	o.logger.Debugf(logger.WithRunState(ctx, string(r.state)), "fetching names: orders=%d, customers=%d", len(orders), len(ids))

	lookup, err := o.gateway.FetchCustomerNames(ctx, ids)
	if err != nil {
		return nil, gatewayError(ctx, "fetch customer names failed", err)
	}

	if err := r.enter(ctx, StateFormatting); err != nil {
		return nil, err
	}
	report, err := o.formatter.Format(ctx, Enrich(orders, lookup), req.Threshold)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, contextError(ctxErr)
		}
		return nil, err
	}

	if err := r.enter(ctx, StateDone); err != nil {
		return nil, err
	}
	return report, nil
}

func (o *Orchestrator) validate(req Request) error {
	if math.IsNaN(req.Threshold) || math.IsInf(req.Threshold, 0) || req.Threshold < 0 {
		return errorutil.InvalidInput("threshold must be a number >= 0")
	}
	if o.opts.MaxThreshold > 0 && req.Threshold > o.opts.MaxThreshold {
		return errorutil.InvalidInput(fmt.Sprintf("threshold must be <= %.2f", o.opts.MaxThreshold))
	}
	if req.Limit <= 0 {
		return errorutil.InvalidInput("limit must be > 0")
	}
	return nil
}

// gatewayError 截止时间/取消优先，其余未分类错误视为数仓不可用
func gatewayError(ctx context.Context, message string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return contextError(ctxErr)
	}
	var e *errorutil.Error
	if errors.As(err, &e) {
		return e
	}
	return errorutil.DataUnavailable(message, err)
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errorutil.Timeout("run deadline exceeded", err)
	}
	return errorutil.Cancelled("run cancelled", err)
}
