package catalog

import "saas_backend/internal/models"

func MapCollection(companyID int64, c WixCollection) models.Category {
	return models.Category{
		CompanyID:    companyID,
		WixID:        c.ID,
		Name:         c.Name,
		Description:  c.Description,
		VisibleInWix: visible(c.Visible),
	}
}

// * MapProduct переносит поля товара Wix в локальную модель. Изображение берется из миниатюры главного медиа.
func MapProduct(companyID int64, p WixProduct) models.Product {
	out := models.Product{
		CompanyID:        companyID,
		WixID:            p.ID,
		Name:             p.Name,
		Description:      p.Description,
		VisibleInWix:     visible(p.Visible),
		Weight:           p.Weight,
		Price:            p.PriceData.Price,
		DiscountedPrice:  p.PriceData.DiscountedPrice,
		DiscountedType:   p.Discount.Type,
		DiscountedAmount: p.Discount.Amount,
		Images:           []models.ProductImage{},
		AdditionalInfo:   []models.ProductInfo{},
		CategoryWixIDs:   append([]string(nil), p.CollectionIDs...),
	}

	if url := p.Media.MainMedia.Thumbnail.URL; url != "" {
		out.Images = append(out.Images, models.ProductImage{
			MediaURL:     url,
			ThumbnailURL: url,
			IsMainMedia:  true,
		})
	}

	for _, s := range p.AdditionalInfoSections {
		out.AdditionalInfo = append(out.AdditionalInfo, models.ProductInfo{
			Title:       s.Title,
			Description: s.Description,
		})
	}

	return out
}

func visible(v *bool) bool {
	return v == nil || *v
}
