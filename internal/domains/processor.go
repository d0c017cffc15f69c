package domains

import (
	"context"
	"time"

	"github.com/bitleak/lmstfy/client"
	"github.com/google/uuid"

	"basketwatch/internal/framework"
	"basketwatch/pkg/lmstfyx"
	"basketwatch/pkg/logger"
)

// GetProcess 返回核心处理函数（注入到 Processor）
// 解析失败、未知 action_type、handler panic 或返回 error 的消息进入死信，其余 ACK
func GetProcess(log logger.Logger, handlers map[string]framework.HandlerFactory) lmstfyx.Proc {
	return func(ctx context.Context, lmstfyJob *client.Job) *lmstfyx.JobResp {
		startTime := time.Now()

		// 1. 解析 Job
		base, err := framework.ParseJob(lmstfyJob.Data)
		if err != nil {
			log.Errorf(ctx, "[GetProcess] parseJob failed: job_id=%s, err=%v", lmstfyJob.ID, err)
			return lmstfyx.Bury()
		}
		meta := base.Meta()
		if meta.RequestID == "" {
			base.SetRequestID(uuid.New().String())
		}

		// 2. 注入 TraceID 到 Context
		ctx = logger.WithTraceID(ctx, meta.RequestID)
		ctx = logger.WithActionType(ctx, meta.ActionType)

		log.Infof(ctx, "[GetProcess] Processing job: action_type=%s, request_id=%s, id=%s",
			meta.ActionType, meta.RequestID, meta.ID)

		// 3. 从路由表获取 Handler
		factory, ok := handlers[meta.ActionType]
		if !ok {
			log.Errorf(ctx, "[GetProcess] handler not found for action_type: %s", meta.ActionType)
			return lmstfyx.Bury()
		}

		// 4. 调用 Handler（捕获 panic）
		resp := runHandler(ctx, log, factory, base)

		log.Infof(ctx, "[GetProcess] Processing complete: action=%s, duration=%v", resp.Action, time.Since(startTime))
		return resp
	}
}

func runHandler(ctx context.Context, log logger.Logger, factory framework.HandlerFactory, base *framework.BaseHandler) (resp *lmstfyx.JobResp) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf(ctx, "[GetProcess] handler panic: %v", r)
			resp = lmstfyx.Bury()
		}
	}()

	handler, err := factory(ctx, base)
	if err != nil {
		log.Errorf(ctx, "[GetProcess] handler creation failed: %v", err)
		return lmstfyx.Bury()
	}

	data, err := handler.Handle(ctx)
	if err != nil {
		log.Errorf(ctx, "[GetProcess] handler failed: %v", err)
		return lmstfyx.Bury()
	}

	return lmstfyx.Ack(data)
}
