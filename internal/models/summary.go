package models

// Summary is the computed confirmation view of a completed wizard run.
// Local indicates the summary was rebuilt from cached values after the
// backend summary endpoint failed; only locally known values appear then.
type Summary struct {
	ApplicationNumber string      `json:"applicationNumber"`
	ProcedureName     string      `json:"procedureName"`
	CreatedAt         string      `json:"createdAt"`
	UserName          string      `json:"userName,omitempty"`
	UserEmail         string      `json:"userEmail,omitempty"`
	UserPhone         string      `json:"userPhone,omitempty"`
	Cost              float64     `json:"cost"`
	Status            string      `json:"status"`
	FormData          []FormField `json:"formData,omitempty"`
	Local             bool        `json:"local"`
}

// BackendSummary mirrors the backend's GET /applications/{id}/summary shape.
type BackendSummary struct {
	Application struct {
		ID        int64  `json:"id"`
		Code      string `json:"code"`
		Procedure string `json:"procedure"`
		Status    string `json:"status"`
		Date      string `json:"date"`
	} `json:"application"`
	Pay struct {
		Amount float64 `json:"amount"`
		Method string  `json:"method"`
	} `json:"pay"`
	Form []FormField `json:"form"`
}

// NotificationCount is the payload of the notification-count poll.
type NotificationCount struct {
	Unread int `json:"unread"`
}
