package submissions

import (
	"time"

	"resume-pipeline/internal/profile"
	"resume-pipeline/internal/shared/server/respond"
)

type submitResponse struct {
	ID            string `json:"id"`
	ParsingStatus Stage  `json:"parsingStatus"`
}

type statusResponse struct {
	ID                string `json:"id"`
	ParsingStatus     Stage  `json:"parsingStatus"`
	State             State  `json:"state"`
	FailureMessage    string `json:"failureMessage,omitempty"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
}

type summaryResponse struct {
	ID             string    `json:"id"`
	FileName       string    `json:"fileName"`
	MimeType       string    `json:"mimeType"`
	SizeBytes      int64     `json:"sizeBytes"`
	ParsingStatus  Stage     `json:"parsingStatus"`
	FailureMessage string    `json:"failureMessage,omitempty"`
	PageCount      int       `json:"pageCount,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type detailResponse struct {
	summaryResponse
	HasPDF  bool             `json:"hasPdf"`
	Profile *profile.Profile `json:"profile,omitempty"`
}

func toStatusResponse(st Status) statusResponse {
	return statusResponse{
		ID:                st.ID,
		ParsingStatus:     st.Stage,
		State:             st.State,
		FailureMessage:    st.FailureReason,
		RetryAfterSeconds: respond.RetryAfterSeconds(st.RetryAfter),
	}
}

func toSummaryResponse(s Submission) summaryResponse {
	resp := summaryResponse{
		ID:            s.ID,
		FileName:      s.FileName,
		MimeType:      s.MimeType,
		SizeBytes:     s.SizeBytes,
		ParsingStatus: s.Stage,
		PageCount:     s.PageCount,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
	if s.FailureReason != nil {
		resp.FailureMessage = *s.FailureReason
	}
	return resp
}

func toDetailResponse(s Submission) detailResponse {
	return detailResponse{
		summaryResponse: toSummaryResponse(s),
		HasPDF:          s.Stage == StageReady && len(s.CompiledPDF) > 0,
		Profile:         s.Profile,
	}
}
