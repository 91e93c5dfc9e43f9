package dto

import "time"

// HistoryQuery selects one month of audit rows with pagination.
type HistoryQuery struct {
	PageNum   int `form:"page_num"`
	PageItems int `form:"page_items"`
	Year      int `form:"year" binding:"omitempty,min=2000,max=2200"`
	Month     int `form:"month" binding:"omitempty,min=1,max=12"`
}

// HistoryEntryResponse is one audit row.
type HistoryEntryResponse struct {
	UserAgent   string    `json:"user_agent"`
	LoginDate   time.Time `json:"login_date"`
	LoginStatus bool      `json:"login_status"`
	ServiceName string    `json:"service_name"`
	TotpStatus  bool      `json:"totp_status"`
}

// HistoryPageResponse is one page of audit rows.
type HistoryPageResponse struct {
	PageNum   int                    `json:"page_num"`
	PageItems int                    `json:"page_items"`
	Entries   []HistoryEntryResponse `json:"entries"`
}
