package models

import (
	"gorm.io/gorm"
)

type Contact struct {
	BaseModel
	FirstName string    `json:"first_name" gorm:"not null"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	Addresses []Address `json:"addresses,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

type ContactFilters struct {
	Name  string
	Email string
	Phone string
}

func (user *User) AddContact(contact *Contact) error {
	contact.UserID = user.ID
	return db.Create(contact).Error
}

// FindUserContact fetches the contact whose id AND owner match. Ownership is
// part of the query predicate, so a contact that exists but belongs to another
// user is never materialized - it resolves as gorm.ErrRecordNotFound, exactly
// like an id that doesn't exist.
func FindUserContact(userID uint, contactID string) (*Contact, error) {
	contact := Contact{}
	err := db.First(&contact, "user_id = ? AND id = ?", userID, contactID).Error
	if err != nil {
		return nil, err
	}

	return &contact, nil
}

// UpdateUserContact resolves the contact scoped to its owner & applies the
// full set of attributes, all inside one transaction so a concurrent delete
// can't race the update.
func UpdateUserContact(userID uint, contactID string, attrs map[string]interface{}) (*Contact, error) {
	contact := Contact{}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&contact, "user_id = ? AND id = ?", userID, contactID).Error; err != nil {
			return err
		}

		return tx.Model(&contact).Updates(attrs).Error
	})
	if err != nil {
		return nil, err
	}

	return &contact, nil
}

// DeleteUserContact removes the contact & its addresses in one transaction.
func DeleteUserContact(userID uint, contactID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		contact := Contact{}
		if err := tx.First(&contact, "user_id = ? AND id = ?", userID, contactID).Error; err != nil {
			return err
		}

		if err := tx.Where("contact_id = ?", contact.ID).Delete(&Address{}).Error; err != nil {
			return err
		}

		return tx.Delete(&contact).Error
	})
}

// SearchContacts returns one page of the user's contacts matching the given
// filters, plus paging info for the whole result set. The owner predicate is
// unconditional; filters are ANDed on top of it, with the name filter matching
// either first or last name as a substring.
func SearchContacts(userID uint, filters ContactFilters, page, pageSize int) ([]Contact, *Paging, error) {
	var total int64

	scope := contactSearchScope(userID, filters)

	err := db.Model(&Contact{}).Scopes(scope).Count(&total).Error
	if err != nil {
		return nil, nil, err
	}

	contacts := []Contact{}
	err = db.Scopes(scope, paginate(page, pageSize)).Order("id").Find(&contacts).Error
	if err != nil {
		return nil, nil, err
	}

	return contacts, newPaging(page, pageSize, total), nil
}

// ---------------------------------------------------------------------------------//
// Scopes
// --------------------------------------------------------------------------------//

func contactSearchScope(userID uint, filters ContactFilters) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("user_id = ?", userID)

		if filters.Name != "" {
			pattern := "%" + filters.Name + "%"
			db = db.Where("first_name LIKE ? OR last_name LIKE ?", pattern, pattern)
		}

		if filters.Email != "" {
			db = db.Where("email LIKE ?", "%"+filters.Email+"%")
		}

		if filters.Phone != "" {
			db = db.Where("phone LIKE ?", "%"+filters.Phone+"%")
		}

		return db
	}
}
