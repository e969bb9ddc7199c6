package accounting

import "fmt"

// Kind identifies a family of content records that consume object storage.
type Kind string

const (
	KindCategoryMedia  Kind = "category_media"
	KindItemMedia      Kind = "item_media"
	KindPostMedia      Kind = "post_media"
	KindPortfolioMedia Kind = "portfolio_media"
	KindPackageCover   Kind = "package_cover"
	KindOfferMedia     Kind = "offer_media"
	KindOfferCover     Kind = "offer_cover"
	KindContactAvatar  Kind = "contact_avatar"
)

// Kinds lists every kind in reporting order.
var Kinds = []Kind{
	KindCategoryMedia,
	KindItemMedia,
	KindPostMedia,
	KindPortfolioMedia,
	KindPackageCover,
	KindOfferMedia,
	KindOfferCover,
	KindContactAvatar,
}

func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// hierarchical kinds feed the section breakdown and need per-record bytes.
func (k Kind) hierarchical() bool {
	return k == KindCategoryMedia || k == KindItemMedia
}
