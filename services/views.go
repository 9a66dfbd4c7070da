package services

import (
	"storefront/entities"
	"storefront/models"
)

func productSummary(p models.Product) entities.ProductSummary {
	return entities.ProductSummary{
		Id:     p.Id,
		Name:   p.Name,
		Price:  p.Price,
		Images: p.Images,
	}
}

func userSummary(u models.User, withEmail bool) entities.UserSummary {
	s := entities.UserSummary{Id: u.Id, Name: u.Name, Image: u.Image}
	if withEmail {
		s.Email = u.Email
	}
	return s
}

// distinct keeps the first occurrence of every non-empty value.
func distinct(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
