package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/snackfleet-backend/internal/domain"
)

// respondError maps aggregate error codes to HTTP statuses and surfaces the
// full set of violated rules for validation failures.
func respondError(c *gin.Context, err error) {
	body := gin.H{"error": err.Error()}
	if reasons := domain.ReasonsOf(err); len(reasons) > 0 {
		body["reasons"] = reasons
	}
	switch domain.CodeOf(err) {
	case domain.CodeValidation, domain.CodeInvariantViolation:
		c.JSON(http.StatusBadRequest, body)
	case domain.CodeNotFound:
		c.JSON(http.StatusNotFound, body)
	case domain.CodeConflict:
		c.JSON(http.StatusConflict, body)
	case domain.CodePreconditionFailed:
		c.JSON(http.StatusUnprocessableEntity, body)
	case domain.CodeRetryable:
		c.JSON(http.StatusServiceUnavailable, body)
	default:
		c.JSON(http.StatusInternalServerError, body)
	}
}

type moneyRequest struct {
	OneYuanCount     int `json:"one_yuan_count"`
	TwoYuanCount     int `json:"two_yuan_count"`
	FiveYuanCount    int `json:"five_yuan_count"`
	TenYuanCount     int `json:"ten_yuan_count"`
	TwentyYuanCount  int `json:"twenty_yuan_count"`
	FiftyYuanCount   int `json:"fifty_yuan_count"`
	HundredYuanCount int `json:"hundred_yuan_count"`
}

func (r moneyRequest) toMoney() (domain.Money, error) {
	return domain.NewMoney(
		r.OneYuanCount,
		r.TwoYuanCount,
		r.FiveYuanCount,
		r.TenYuanCount,
		r.TwentyYuanCount,
		r.FiftyYuanCount,
		r.HundredYuanCount,
	)
}
