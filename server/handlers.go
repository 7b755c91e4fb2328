package server

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator"
	"github.com/gorilla/mux"
	"github.com/msumarli/rolodex/server/auth"
	"github.com/msumarli/rolodex/server/models"
	"gorm.io/gorm"
)

type ResponsePayload struct {
	Data interface{}    `json:"data"`
	Meta *models.Paging `json:"meta,omitempty"`
}

type ErrorPayload struct {
	Error map[string][]string `json:"error"`
}

type RegisterUserRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=100"`
	Name     string `json:"name" validate:"required,max=100"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=100"`
}

type ContactRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Email     string `json:"email" validate:"omitempty,email,max=200"`
	Phone     string `json:"phone" validate:"max=20"`
}

type AddressRequest struct {
	Street     string `json:"street" validate:"max=200"`
	City       string `json:"city" validate:"max=100"`
	Province   string `json:"province" validate:"max=100"`
	Country    string `json:"country" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"max=10"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()

	// report failures under the wire field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ---------------------------------------------------------------------------------//
// User handlers
// --------------------------------------------------------------------------------//

func registerUser(rw http.ResponseWriter, r *http.Request) {
	payload := RegisterUserRequest{}
	if err := decodeRequestBody(r, &payload); err != nil {
		writeError(rw, http.StatusBadRequest, "message", "invalid request body")
		return
	}

	if err := validate.Struct(payload); err != nil {
		writeValidationErrors(rw, err)
		return
	}

	taken, err := models.UsernameTaken(payload.Username)
	if err != nil {
		writeInternalError(rw, err)
		return
	}
	if taken {
		writeError(rw, http.StatusBadRequest, "username", "Username already registered")
		return
	}

	user := models.User{Username: payload.Username, Password: payload.Password, Name: payload.Name}
	err = models.CreateUser(&user)
	if errors.Is(err, models.ErrDuplicateUsername) {
		writeError(rw, http.StatusBadRequest, "username", "Username already registered")
		return
	}
	if err != nil {
		writeInternalError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Data: newUserResource(&user)}, http.StatusCreated)
}

func logIn(rw http.ResponseWriter, r *http.Request) {
	payload := LoginRequest{}
	if err := decodeRequestBody(r, &payload); err != nil {
		writeError(rw, http.StatusBadRequest, "message", "invalid request body")
		return
	}

	if err := validate.Struct(payload); err != nil {
		writeValidationErrors(rw, err)
		return
	}

	// An unknown username & a wrong password produce the exact same
	// response, so the endpoint can't be used to enumerate accounts.
	user, err := models.FindUserBy("username", payload.Username)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !auth.CheckPasswordHash(payload.Password, user.Password)) {
		writeError(rw, http.StatusUnauthorized, "message", "Username or password wrong")
		return
	}
	if err != nil {
		writeInternalError(rw, err)
		return
	}

	token := auth.NewSessionToken()
	if err = user.SetToken(&token); err != nil {
		writeInternalError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Data: newUserResource(user)}, http.StatusOK)
}

func getCurrentUser(rw http.ResponseWriter, r *http.Request) {
	writeResponse(rw, ResponsePayload{Data: newUserResource(currentUser(r))}, http.StatusOK)
}

func updateCurrentUser(rw http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{}
	if err := decodeRequestBody(r, &data); err != nil {
		writeError(rw, http.StatusBadRequest, "message", "invalid request body")
		return
	}

	removeUnknownFields(data, map[string]bool{"name": true, "password": true})
	if len(data) == 0 {
		writeError(rw, http.StatusBadRequest, "message", "valid fields required")
		return
	}

	errs := map[string][]string{}
	for _, field := range []string{"name", "password"} {
		raw, present := data[field]
		if !present {
			continue
		}

		value, isString := raw.(string)
		if !isString {
			errs[field] = append(errs[field], fmt.Sprintf("The %v field must be a string.", field))
			continue
		}

		if strings.TrimSpace(value) == "" {
			errs[field] = append(errs[field], fmt.Sprintf("The %v field is required.", field))
		} else if len(value) > 100 {
			errs[field] = append(errs[field], fmt.Sprintf("The %v field must not be greater than 100 characters.", field))
		}
	}
	if len(errs) > 0 {
		writeErrors(rw, errs, http.StatusBadRequest)
		return
	}

	user := currentUser(r)
	if err := user.Update(data); err != nil {
		writeInternalError(rw, err)
		return
	}

	user, err := models.FindUserBy("id", user.ID)
	if err != nil {
		writeInternalError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Data: newUserResource(user)}, http.StatusOK)
}

func logOut(rw http.ResponseWriter, r *http.Request) {
	if err := currentUser(r).SetToken(nil); err != nil {
		writeInternalError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Data: true}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Contact handlers
// --------------------------------------------------------------------------------//

func createContact(rw http.ResponseWriter, r *http.Request) {
	payload := ContactRequest{}
	if err := decodeRequestBody(r, &payload); err != nil {
		writeError(rw, http.StatusBadRequest, "message", "invalid request body")
		return
	}

	if err := validate.Struct(payload); err != nil {
		writeValidationErrors(rw, err)
		return
	}

	contact := models.Contact{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Phone:     payload.Phone,
	}
	if err := currentUser(r).AddContact(&contact); err != nil {
		writeInternalError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Data: newContactResource(&contact)}, http.StatusCreated)
}

func searchContacts(rw http.ResponseWriter, r *http.Request) {
	filters := models.ContactFilters{
		Name:  r.URL.Query().Get("name"),
		Email: r.URL.Query().Get("email"),
		Phone: r.URL.Query().Get("phone"),
	}
	page := queryInt(r, "page", 1)
	size := queryInt(r, "size", models.DEFAULT_PAGE_SIZE)

	contacts, paging, err := models.SearchContacts(currentUser(r).ID, filters, page, size)
	if err != nil {
		writeInternalError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Data: newContactCollection(contacts), Meta: paging}, http.StatusOK)
}

func getContact(rw http.ResponseWriter, r *http.Request) {
	contact := resolveContact(rw, r)
	if contact == nil {
		return
	}

	writeResponse(rw, ResponsePayload{Data: newContactResource(contact)}, http.StatusOK)
}

func updateContact(rw http.ResponseWriter, r *http.Request) {
	payload := ContactRequest{}
	if err := decodeRequestBody(r, &payload); err != nil {
		writeError(rw, http.StatusBadRequest, "message", "invalid request body")
		return
	}

	if err := validate.Struct(payload); err != nil {
		writeValidationErrors(rw, err)
		return
	}

	contact, err := models.UpdateUserContact(currentUser(r).ID, mux.Vars(r)["id"], map[string]interface{}{
		"first_name": payload.FirstName,
		"last_name":  payload.LastName,
		"email":      payload.Email,
		"phone":      payload.Phone,
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeNotFound(rw)
		return
	}
	if err != nil {
		writeInternalError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Data: newContactResource(contact)}, http.StatusOK)
}

func deleteContact(rw http.ResponseWriter, r *http.Request) {
	err := models.DeleteUserContact(currentUser(r).ID, mux.Vars(r)["id"])
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeNotFound(rw)
		return
	}
	if err != nil {
		writeInternalError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Data: true}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Address handlers
// --------------------------------------------------------------------------------//

func createAddress(rw http.ResponseWriter, r *http.Request) {
	contact := resolveContact(rw, r)
	if contact == nil {
		return
	}

	payload := AddressRequest{}
	if err := decodeRequestBody(r, &payload); err != nil {
		writeError(rw, http.StatusBadRequest, "message", "invalid request body")
		return
	}

	if err := validate.Struct(payload); err != nil {
		writeValidationErrors(rw, err)
		return
	}

	address := models.Address{
		Street:     payload.Street,
		City:       payload.City,
		Province:   payload.Province,
		Country:    payload.Country,
		PostalCode: payload.PostalCode,
	}
	if err := contact.AddAddress(&address); err != nil {
		writeInternalError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Data: newAddressResource(&address)}, http.StatusCreated)
}

func listAddresses(rw http.ResponseWriter, r *http.Request) {
	contact := resolveContact(rw, r)
	if contact == nil {
		return
	}

	addresses, err := contact.LoadAddresses()
	if err != nil {
		writeInternalError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Data: newAddressCollection(addresses)}, http.StatusOK)
}

func getAddress(rw http.ResponseWriter, r *http.Request) {
	contact := resolveContact(rw, r)
	if contact == nil {
		return
	}

	address, err := models.FindContactAddress(contact.ID, mux.Vars(r)["aid"])
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeNotFound(rw)
		return
	}
	if err != nil {
		writeInternalError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Data: newAddressResource(address)}, http.StatusOK)
}

func updateAddress(rw http.ResponseWriter, r *http.Request) {
	contact := resolveContact(rw, r)
	if contact == nil {
		return
	}

	payload := AddressRequest{}
	if err := decodeRequestBody(r, &payload); err != nil {
		writeError(rw, http.StatusBadRequest, "message", "invalid request body")
		return
	}

	if err := validate.Struct(payload); err != nil {
		writeValidationErrors(rw, err)
		return
	}

	address, err := models.UpdateContactAddress(contact.ID, mux.Vars(r)["aid"], map[string]interface{}{
		"street":      payload.Street,
		"city":        payload.City,
		"province":    payload.Province,
		"country":     payload.Country,
		"postal_code": payload.PostalCode,
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeNotFound(rw)
		return
	}
	if err != nil {
		writeInternalError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Data: newAddressResource(address)}, http.StatusOK)
}

func deleteAddress(rw http.ResponseWriter, r *http.Request) {
	contact := resolveContact(rw, r)
	if contact == nil {
		return
	}

	err := models.DeleteContactAddress(contact.ID, mux.Vars(r)["aid"])
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeNotFound(rw)
		return
	}
	if err != nil {
		writeInternalError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Data: true}, http.StatusOK)
}

// resolveContact materializes the contact named in the path, scoped to the
// principal. Every contact & address operation goes through here first; on
// failure it writes the uniform 404 & returns nil.
func resolveContact(rw http.ResponseWriter, r *http.Request) *models.Contact {
	contact, err := models.FindUserContact(currentUser(r).ID, mux.Vars(r)["id"])
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeNotFound(rw)
		return nil
	}
	if err != nil {
		writeInternalError(rw, err)
		return nil
	}

	return contact
}
