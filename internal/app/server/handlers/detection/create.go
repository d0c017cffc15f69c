package detection

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"basketwatch/internal/app/domains/apimodel/request"
	"basketwatch/internal/app/domains/apimodel/response"
	"basketwatch/internal/app/domains/services/svdetection"
	"basketwatch/internal/app/pkg/ginx"
	"basketwatch/internal/app/server/middlewares"
)

// Create 发起检测
// POST /api/v1/detections?wait=10
// 没有异常时返回 200 + status=EMPTY，失败时按错误类别返回非 2xx
func (h *DetectionHandler) Create(c *gin.Context) {
	requestID := middlewares.RequestID(c)

	waitSeconds := 0
	if waitStr := c.Query("wait"); waitStr != "" {
		if w, err := strconv.Atoi(waitStr); err == nil && w > 0 {
			waitSeconds = min(w, maxWaitSeconds)
		}
	}

	var req request.CreateDetectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	outcome, err := h.detectionService.Detect(c.Request.Context(), requestID, svdetection.Input{
		Threshold:   req.Threshold,
		Instruction: req.Instruction,
		Limit:       req.Limit,
		WaitSeconds: waitSeconds,
	})
	if err != nil {
		ginx.FromError(c, err, requestID)
		return
	}

	ginx.Success(c, response.FromReport(outcome.RequestID, outcome.Threshold, outcome.Report))
}
