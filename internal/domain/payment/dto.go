package payment

type CreateOrderRequest struct {
	PlanType string `json:"plan_type" binding:"required"`
	Duration string `json:"duration"` // 1M, 3M, 6M, 12M; ignored for PER_BLOG
	ScopeID  string `json:"scope_id"` // section or subsection id
	BlogID   string `json:"blog_id"`  // PER_BLOG only
}

// CreateOrderResponse is what the browser needs to open the gateway checkout.
type CreateOrderResponse struct {
	Payment *Payment `json:"payment"`
	KeyID   string   `json:"key_id"`
}

type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" binding:"required"`
}

type ListFilters struct {
	Status   *Status `form:"status"`
	UserID   *int64  `form:"user_id"`
	Page     int     `form:"page" binding:"omitempty,min=1"`
	PageSize int     `form:"page_size" binding:"omitempty,min=1,max=100"`
}

type ListResponse struct {
	Payments   []Payment `json:"payments"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}
