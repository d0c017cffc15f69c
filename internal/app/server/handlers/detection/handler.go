package detection

import "basketwatch/internal/app/domains/services/svdetection"

// maxWaitSeconds Smart Wait 的上限
const maxWaitSeconds = 60

// DetectionHandler 检测 HTTP 处理器
type DetectionHandler struct {
	detectionService *svdetection.DetectionService
}

// NewDetectionHandler 创建检测处理器实例
func NewDetectionHandler(detectionService *svdetection.DetectionService) *DetectionHandler {
	return &DetectionHandler{
		detectionService: detectionService,
	}
}
