package response

import "basketwatch/internal/model"

const (
	DetectionStatusFound = "FOUND"
	DetectionStatusEmpty = "EMPTY"

	// EmptyMessage 没有异常时的提示（信息，不是错误）
	EmptyMessage = "No high-value orders found."
)

// DetectionResponse 检测结果（DTO）
type DetectionResponse struct {
	RequestID string              `json:"request_id"`
	Status    string              `json:"status"`
	Message   string              `json:"message,omitempty"`
	Threshold float64             `json:"threshold"`
	Anomalies model.AnomalyReport `json:"anomalies"`
}

// FromReport 报告转 DTO，空报告带提示文案
func FromReport(requestID string, threshold float64, report model.AnomalyReport) *DetectionResponse {
	resp := &DetectionResponse{
		RequestID: requestID,
		Threshold: threshold,
		Anomalies: report,
	}
	if report.IsEmpty() {
		resp.Status = DetectionStatusEmpty
		resp.Message = EmptyMessage
		resp.Anomalies = model.AnomalyReport{}
		return resp
	}
	resp.Status = DetectionStatusFound
	return resp
}
