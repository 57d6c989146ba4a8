package models

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/nicefood/prodtrack/internal/repository"
)

// ToData converts a typed record into a store payload. The "id" key is dropped:
// identity lives in the document address, never in the payload.
func ToData(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	data := map[string]any{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	delete(data, "id")
	return data, nil
}

// decode round-trips the payload through BSON so values coming from either
// store backend (driver primitives or plain JSON values) land in typed fields.
func decode(data map[string]any, out any) error {
	if data == nil {
		data = map[string]any{}
	}
	raw, err := bson.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := bson.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal document: %w", err)
	}
	return nil
}

// DecodeMaterial maps a stored document to a Material.
func DecodeMaterial(doc repository.Document) (Material, error) {
	var m Material
	if err := decode(doc.Data, &m); err != nil {
		return Material{}, fmt.Errorf("material %s: %w", doc.ID, err)
	}
	m.ID = doc.ID
	return m, nil
}

// DecodeProduct maps a stored document to a Product.
func DecodeProduct(doc repository.Document) (Product, error) {
	var p Product
	if err := decode(doc.Data, &p); err != nil {
		return Product{}, fmt.Errorf("product %s: %w", doc.ID, err)
	}
	p.ID = doc.ID
	if p.Info == nil {
		p.Info = Info{}
	}
	return p, nil
}

// DecodeUser maps a stored document to a User.
func DecodeUser(doc repository.Document) (User, error) {
	var u User
	if err := decode(doc.Data, &u); err != nil {
		return User{}, fmt.Errorf("user %s: %w", doc.ID, err)
	}
	u.ID = doc.ID
	return u, nil
}

// DecodeSection maps a stored document to a Section.
func DecodeSection(doc repository.Document) (Section, error) {
	var s Section
	if err := decode(doc.Data, &s); err != nil {
		return Section{}, fmt.Errorf("section %s: %w", doc.ID, err)
	}
	s.ID = doc.ID
	return s, nil
}
