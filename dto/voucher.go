package dto

type CreateVoucherRequest struct {
	Code          string   `json:"code"`
	Discount      float64  `json:"discount"`
	DiscountType  int      `json:"discountType"`
	MaxDiscount   *float64 `json:"maxDiscount,omitempty"`
	MinOrderValue float64  `json:"minOrderValue"`
	UsageLimit    *int     `json:"usageLimit,omitempty"`
	StartDate     string   `json:"startDate"`  // 02/01/2006
	ExpiryDate    string   `json:"expiryDate"` // 02/01/2006
}

type ValidateVoucherRequest struct {
	Code       string  `json:"code"`
	OrderValue float64 `json:"orderValue"`
}

type VoucherResponse struct {
	ID            uint     `json:"id"`
	Code          string   `json:"code"`
	Discount      float64  `json:"discount"`
	DiscountType  int      `json:"discountType"`
	MaxDiscount   *float64 `json:"maxDiscount,omitempty"`
	MinOrderValue float64  `json:"minOrderValue"`
	UsageLimit    *int     `json:"usageLimit,omitempty"`
	UsageCount    int      `json:"usageCount"`
	Status        int      `json:"status"`
}
