package port

import "github.com/garyjia/promotion-approval/internal/domain/entity"

// ReportRenderer turns promotion requests into a downloadable document
type ReportRenderer interface {
	RenderPromotions(views []*entity.PromotionView) ([]byte, error)
	ContentType() string
}
