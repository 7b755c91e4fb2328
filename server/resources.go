package server

import "github.com/msumarli/rolodex/server/models"

// Wire representations. Internal entities never hit the encoder directly,
// so fields like password hashes & owner ids stay off the wire.

type UserResource struct {
	ID       uint    `json:"id"`
	Username string  `json:"username"`
	Name     string  `json:"name"`
	Token    *string `json:"token,omitempty"`
}

type ContactResource struct {
	ID        uint   `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type AddressResource struct {
	ID         uint   `json:"id"`
	Street     string `json:"street"`
	City       string `json:"city"`
	Province   string `json:"province"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
}

func newUserResource(user *models.User) *UserResource {
	return &UserResource{
		ID:       user.ID,
		Username: user.Username,
		Name:     user.Name,
		Token:    user.Token,
	}
}

func newContactResource(contact *models.Contact) *ContactResource {
	return &ContactResource{
		ID:        contact.ID,
		FirstName: contact.FirstName,
		LastName:  contact.LastName,
		Email:     contact.Email,
		Phone:     contact.Phone,
	}
}

func newContactCollection(contacts []models.Contact) []*ContactResource {
	collection := []*ContactResource{}
	for i := range contacts {
		collection = append(collection, newContactResource(&contacts[i]))
	}

	return collection
}

func newAddressResource(address *models.Address) *AddressResource {
	return &AddressResource{
		ID:         address.ID,
		Street:     address.Street,
		City:       address.City,
		Province:   address.Province,
		Country:    address.Country,
		PostalCode: address.PostalCode,
	}
}

func newAddressCollection(addresses []models.Address) []*AddressResource {
	collection := []*AddressResource{}
	for i := range addresses {
		collection = append(collection, newAddressResource(&addresses[i]))
	}

	return collection
}
