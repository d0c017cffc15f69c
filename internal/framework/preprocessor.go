package framework

import (
	"context"
	"fmt"
)

// Step 函数链中的一个命名步骤
type Step struct {
	Name string
	Fn   ProcessorFunc
}

// PreProcessor 函数链处理器
type PreProcessor struct {
	steps []Step
}

// NewPreProcessor 创建函数链处理器
func NewPreProcessor(steps ...Step) *PreProcessor {
	return &PreProcessor{steps: steps}
}

// Run 顺序执行，任一步骤返回 error 则立即停止
// 每步开始前检查 ctx，已取消时不再继续
func (p *PreProcessor) Run(ctx context.Context) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("step %s skipped: %w", step.Name, err)
		}
		if err := step.Fn(ctx); err != nil {
			return fmt.Errorf("step %s failed: %w", step.Name, err)
		}
	}
	return nil
}
