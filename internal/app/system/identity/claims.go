package identity

import "github.com/dalemusser/campushub/internal/domain/models"

// Custom claim keys written to the provider.
const (
	ClaimRole      = "role"
	ClaimName      = "name"
	ClaimEmail     = "email"
	ClaimInterests = "interests"
	ClaimPhotoURL  = "photo_url"
)

// EncodeClaims converts c to the provider's custom-claims map.
func EncodeClaims(c models.Claims) map[string]interface{} {
	m := map[string]interface{}{
		ClaimRole:  c.Role,
		ClaimName:  c.Name,
		ClaimEmail: c.Email,
	}
	interests := make([]string, len(c.Interests))
	copy(interests, c.Interests)
	m[ClaimInterests] = interests
	if c.PhotoURL != nil {
		m[ClaimPhotoURL] = *c.PhotoURL
	} else {
		m[ClaimPhotoURL] = nil
	}
	return m
}

// DecodeClaims reads a claims map as returned on a verified token. Unknown
// keys and values of the wrong type are ignored.
func DecodeClaims(m map[string]interface{}) models.Claims {
	var c models.Claims
	c.Role, _ = m[ClaimRole].(string)
	c.Name, _ = m[ClaimName].(string)
	c.Email, _ = m[ClaimEmail].(string)

	switch v := m[ClaimInterests].(type) {
	case []string:
		c.Interests = append([]string(nil), v...)
	case []interface{}:
		for _, x := range v {
			if s, ok := x.(string); ok {
				c.Interests = append(c.Interests, s)
			}
		}
	}
	if s, ok := m[ClaimPhotoURL].(string); ok {
		c.PhotoURL = &s
	}
	return c
}
