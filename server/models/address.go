package models

import (
	"gorm.io/gorm"
)

type Address struct {
	BaseModel
	Street     string `json:"street"`
	City       string `json:"city"`
	Province   string `json:"province"`
	Country    string `json:"country" gorm:"not null"`
	PostalCode string `json:"postal_code"`
	ContactID  uint   `json:"contact_id" gorm:"not null;index"`
}

func (contact *Contact) AddAddress(address *Address) error {
	address.ContactID = contact.ID
	return db.Create(address).Error
}

func (contact *Contact) LoadAddresses() ([]Address, error) {
	addresses := []Address{}
	err := db.Order("id").Find(&addresses, "contact_id = ?", contact.ID).Error
	if err != nil {
		return nil, err
	}

	return addresses, nil
}

// FindContactAddress fetches the address whose id AND parent contact match.
// Same collapsing rule as FindUserContact: an address that lives under a
// different contact resolves as gorm.ErrRecordNotFound. Callers must have
// resolved the parent contact through FindUserContact first.
func FindContactAddress(contactID uint, addressID string) (*Address, error) {
	address := Address{}
	err := db.First(&address, "contact_id = ? AND id = ?", contactID, addressID).Error
	if err != nil {
		return nil, err
	}

	return &address, nil
}

// UpdateContactAddress resolves the address scoped to its parent contact &
// replaces its attributes inside one transaction.
func UpdateContactAddress(contactID uint, addressID string, attrs map[string]interface{}) (*Address, error) {
	address := Address{}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&address, "contact_id = ? AND id = ?", contactID, addressID).Error; err != nil {
			return err
		}

		return tx.Model(&address).Updates(attrs).Error
	})
	if err != nil {
		return nil, err
	}

	return &address, nil
}

func DeleteContactAddress(contactID uint, addressID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		address := Address{}
		if err := tx.First(&address, "contact_id = ? AND id = ?", contactID, addressID).Error; err != nil {
			return err
		}

		return tx.Delete(&address).Error
	})
}
