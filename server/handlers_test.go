package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/msumarli/rolodex/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------------//
// Test helpers
// --------------------------------------------------------------------------------//

func performRequest(router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}

	request := httptest.NewRequest(method, path, &buf)
	if token != "" {
		request.Header.Set("Authorization", token)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	body := map[string]interface{}{}
	require.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func dataMap(t *testing.T, body map[string]interface{}) map[string]interface{} {
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "expected 'data' to be an object, got %v", body)
	return data
}

func errorMessages(body map[string]interface{}, key string) []interface{} {
	errMap, _ := body["error"].(map[string]interface{})
	messages, _ := errMap[key].([]interface{})
	return messages
}

func seedUser(t *testing.T, username, password, token string) *models.User {
	user := models.User{Username: username, Password: password, Name: username}
	require.Nil(t, models.CreateUser(&user))

	if token != "" {
		sessionToken := token
		require.Nil(t, user.SetToken(&sessionToken))
	}

	return &user
}

func seedContact(t *testing.T, user *models.User, firstName, lastName, email, phone string) *models.Contact {
	contact := models.Contact{FirstName: firstName, LastName: lastName, Email: email, Phone: phone}
	require.Nil(t, user.AddContact(&contact))
	return &contact
}

// ---------------------------------------------------------------------------------//
// User endpoints
// --------------------------------------------------------------------------------//

func TestRegisterUser(t *testing.T) {
	models.InitializeTestDb()
	router := NewRouter()

	recorder := performRequest(router, "POST", "/users", "", map[string]string{
		"username": "marleess",
		"password": "rahasia",
		"name":     "Marli",
	})
	assert.Equal(t, http.StatusCreated, recorder.Code)

	data := dataMap(t, decodeBody(t, recorder))
	assert.Equal(t, "marleess", data["username"])
	assert.Equal(t, "Marli", data["name"])
	assert.Nil(t, data["token"], "no session token should be issued at registration")
}

func TestRegisterUserValidation(t *testing.T) {
	models.InitializeTestDb()
	router := NewRouter()

	recorder := performRequest(router, "POST", "/users", "", map[string]string{
		"username": "",
		"password": "",
		"name":     "",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	body := decodeBody(t, recorder)
	assert.Contains(t, errorMessages(body, "username"), "The username field is required.")
	assert.Contains(t, errorMessages(body, "password"), "The password field is required.")
	assert.Contains(t, errorMessages(body, "name"), "The name field is required.")
}

func TestRegisterUserDuplicateUsername(t *testing.T) {
	models.InitializeTestDb()
	router := NewRouter()

	payload := map[string]string{"username": "marleess", "password": "rahasia", "name": "Marli"}

	recorder := performRequest(router, "POST", "/users", "", payload)
	assert.Equal(t, http.StatusCreated, recorder.Code)

	recorder = performRequest(router, "POST", "/users", "", payload)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, errorMessages(decodeBody(t, recorder), "username"), "Username already registered")
}

func TestLogin(t *testing.T) {
	models.InitializeTestDb()
	router := NewRouter()
	seedUser(t, "test", "secret", "")

	recorder := performRequest(router, "POST", "/users/login", "", map[string]string{
		"username": "test",
		"password": "secret",
	})
	assert.Equal(t, http.StatusOK, recorder.Code)

	data := dataMap(t, decodeBody(t, recorder))
	assert.Equal(t, "test", data["username"])
	assert.NotEmpty(t, data["token"])

	// the issued token is persisted on the user row
	user, err := models.FindUserBy("username", "test")
	assert.Nil(t, err)
	assert.NotNil(t, user.Token)
	assert.Equal(t, data["token"], *user.Token)
}

func TestLoginOverwritesPreviousToken(t *testing.T) {
	models.InitializeTestDb()
	router := NewRouter()
	seedUser(t, "test", "secret", "stale-token")

	recorder := performRequest(router, "POST", "/users/login", "", map[string]string{
		"username": "test",
		"password": "secret",
	})
	assert.Equal(t, http.StatusOK, recorder.Code)

	// the old session no longer authenticates
	recorder = performRequest(router, "GET", "/users/current", "stale-token", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestLoginWrongCredentialsAreIndistinguishable(t *testing.T) {
	models.InitializeTestDb()
	router := NewRouter()
	seedUser(t, "test", "secret", "")

	wrongPassword := performRequest(router, "POST", "/users/login", "", map[string]string{
		"username": "test",
		"password": "wrong",
	})
	unknownUser := performRequest(router, "POST", "/users/login", "", map[string]string{
		"username": "nobody",
		"password": "wrong",
	})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownUser.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String(),
		"bad-password and unknown-user responses must be identical")
	assert.Contains(t, errorMessages(decodeBody(t, wrongPassword), "message"), "Username or password wrong")
}

func TestGetCurrentUser(t *testing.T) {
	models.InitializeTestDb()
	router := NewRouter()
	seedUser(t, "test", "secret", "test-token")

	recorder := performRequest(router, "GET", "/users/current", "test-token", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	data := dataMap(t, decodeBody(t, recorder))
	assert.Equal(t, "test", data["username"])
	assert.Equal(t, "test-token", data["token"])
}

func TestGetCurrentUserUnauthorized(t *testing.T) {
	models.InitializeTestDb()
	router := NewRouter()
	seedUser(t, "test", "secret", "test-token")

	for _, token := range []string{"", "wrong-token"} {
		recorder := performRequest(router, "GET", "/users/current", token, nil)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Contains(t, errorMessages(decodeBody(t, recorder), "message"), "Unauthorized")
	}
}

func TestUpdateCurrentUserPartial(t *testing.T) {
	models.InitializeTestDb()
	router := NewRouter()
	user := seedUser(t, "test", "secret", "test-token")
	originalHash := user.Password

	// patching only the name leaves the password hash untouched
	recorder := performRequest(router, "PATCH", "/users/current", "test-token", map[string]string{
		"name": "Renamed",
	})
	assert.Equal(t, http.StatusOK, recorder.Code)

	updated, err := models.FindUserBy("id", user.ID)
	assert.Nil(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, originalHash, updated.Password)

	// patching only the password re-hashes it & leaves the name alone
	recorder = performRequest(router, "PATCH", "/users/current", "test-token", map[string]string{
		"password": "newSecret",
	})
	assert.Equal(t, http.StatusOK, recorder.Code)

	updated, err = models.FindUserBy("id", user.ID)
	assert.Nil(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.NotEqual(t, originalHash, updated.Password)
}

func TestUpdateCurrentUserRejectsEmptyPatch(t *testing.T) {
	models.InitializeTestDb()
	router := NewRouter()
	seedUser(t, "test", "secret", "test-token")

	recorder := performRequest(router, "PATCH", "/users/current", "test-token", map[string]string{
		"username": "sneaky",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, errorMessages(decodeBody(t, recorder), "message"), "valid fields required")
}

func TestUpdateCurrentUserRejectsNonStringValues(t *testing.T) {
	models.InitializeTestDb()
	router := NewRouter()
	user := seedUser(t, "test", "secret", "test-token")
	originalHash := user.Password

	// valid JSON, wrong types - must come back as 400, never a panic
	recorder := performRequest(router, "PATCH", "/users/current", "test-token", map[string]interface{}{
		"password": 12345,
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, errorMessages(decodeBody(t, recorder), "password"), "The password field must be a string.")

	recorder = performRequest(router, "PATCH", "/users/current", "test-token", map[string]interface{}{
		"name": nil,
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, errorMessages(decodeBody(t, recorder), "name"), "The name field must be a string.")

	// nothing was written
	updated, err := models.FindUserBy("id", user.ID)
	assert.Nil(t, err)
	assert.Equal(t, "test", updated.Name)
	assert.Equal(t, originalHash, updated.Password)
}

func TestLogout(t *testing.T) {
	models.InitializeTestDb()
	router := NewRouter()
	seedUser(t, "test", "secret", "test-token")

	recorder := performRequest(router, "DELETE", "/users/logout", "test-token", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, true, decodeBody(t, recorder)["data"])

	// the cleared token no longer authenticates
	recorder = performRequest(router, "GET", "/users/current", "test-token", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

// ---------------------------------------------------------------------------------//
// Contact endpoints
// --------------------------------------------------------------------------------//

func TestContactLifecycle(t *testing.T) {
	models.InitializeTestDb()
	router := NewRouter()
	seedUser(t, "test", "secret", "test-token")

	recorder := performRequest(router, "POST", "/contacts", "test-token", map[string]string{
		"first_name": "Marli",
		"last_name":  "Sumarli",
		"email":      "marli@example.com",
		"phone":      "6283872453682",
	})
	assert.Equal(t, http.StatusCreated, recorder.Code)

	data := dataMap(t, decodeBody(t, recorder))
	assert.Equal(t, "Marli", data["first_name"])
	contactID := fmt.Sprintf("%v", data["id"])

	recorder = performRequest(router, "GET", "/contacts/"+contactID, "test-token", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Sumarli", dataMap(t, decodeBody(t, recorder))["last_name"])

	recorder = performRequest(router, "PUT", "/contacts/"+contactID, "test-token", map[string]string{
		"first_name": "New",
		"last_name":  "Name",
		"email":      "new@example.com",
		"phone":      "0987654321",
	})
	assert.Equal(t, http.StatusOK, recorder.Code)
	data = dataMap(t, decodeBody(t, recorder))
	assert.Equal(t, "New", data["first_name"])
	assert.Equal(t, "new@example.com", data["email"])

	recorder = performRequest(router, "DELETE", "/contacts/"+contactID, "test-token", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, true, decodeBody(t, recorder)["data"])

	recorder = performRequest(router, "GET", "/contacts/"+contactID, "test-token", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestCreateContactValidation(t *testing.T) {
	models.InitializeTestDb()
	router := NewRouter()
	seedUser(t, "test", "secret", "test-token")

	recorder := performRequest(router, "POST", "/contacts", "test-token", map[string]string{
		"first_name": "",
		"last_name":  "Sumarli",
		"email":      "123haha",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	body := decodeBody(t, recorder)
	assert.Contains(t, errorMessages(body, "first_name"), "The first_name field is required.")
	assert.Contains(t, errorMessages(body, "email"), "The email field must be a valid email address.")
}

func TestForeignContactResolvesAsNotFound(t *testing.T) {
	models.InitializeTestDb()
	router := NewRouter()
	owner := seedUser(t, "test", "secret", "test-token")
	seedUser(t, "attacker", "secret", "attacker-token")
	contact := seedContact(t, owner, "Marli", "Sumarli", "marli@example.com", "1234567890")

	path := fmt.Sprintf("/contacts/%v", contact.ID)
	for _, attempt := range []struct {
		method string
		body   interface{}
	}{
		{"GET", nil},
		{"PUT", map[string]string{"first_name": "Hijacked"}},
		{"DELETE", nil},
	} {
		recorder := performRequest(router, attempt.method, path, "attacker-token", attempt.body)
		assert.Equal(t, http.StatusNotFound, recorder.Code,
			"%v on a foreign contact must look like a missing record", attempt.method)
		assert.Contains(t, errorMessages(decodeBody(t, recorder), "message"), "Not found")
	}

	// the contact is untouched
	found, err := models.FindUserContact(owner.ID, fmt.Sprintf("%v", contact.ID))
	assert.Nil(t, err)
	assert.Equal(t, "Marli", found.FirstName)
}

func TestContactNotFound(t *testing.T) {
	models.InitializeTestDb()
	router := NewRouter()
	seedUser(t, "test", "secret", "test-token")

	recorder := performRequest(router, "GET", "/contacts/999", "test-token", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Contains(t, errorMessages(decodeBody(t, recorder), "message"), "Not found")

	// non-numeric ids never reach a handler
	recorder = performRequest(router, "GET", "/contacts/abc", "test-token", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestSearchContacts(t *testing.T) {
	models.InitializeTestDb()
	router := NewRouter()
	owner := seedUser(t, "test", "secret", "test-token")
	attacker := seedUser(t, "attacker", "secret", "attacker-token")

	for i := 1; i <= 20; i++ {
		seedContact(t, owner,
			fmt.Sprintf("First%v", i),
			fmt.Sprintf("Last%v", i),
			fmt.Sprintf("first%v@example.com", i),
			fmt.Sprintf("08123%v", i))
	}
	seedContact(t, attacker, "First1", "Last1", "first1@evil.example.com", "081231")

	// no filters: all of the principal's contacts, default page size
	recorder := performRequest(router, "GET", "/contacts", "test-token", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	body := decodeBody(t, recorder)
	assert.Len(t, body["data"], 10)
	meta := body["meta"].(map[string]interface{})
	assert.EqualValues(t, 20, meta["total"])
	assert.EqualValues(t, 1, meta["current_page"])
	assert.EqualValues(t, 2, meta["last_page"])

	// "Last1" matches Last1 and Last10..Last19 as substrings
	recorder = performRequest(router, "GET", "/contacts?name=Last1", "test-token", nil)
	body = decodeBody(t, recorder)
	meta = body["meta"].(map[string]interface{})
	assert.EqualValues(t, 11, meta["total"])
	assert.Len(t, body["data"], 10)

	recorder = performRequest(router, "GET", "/contacts?name=Last1&page=2", "test-token", nil)
	body = decodeBody(t, recorder)
	meta = body["meta"].(map[string]interface{})
	assert.Len(t, body["data"], 1)
	assert.EqualValues(t, 2, meta["current_page"])

	// email filter; the attacker's matching contact must never surface
	recorder = performRequest(router, "GET", "/contacts?email=first1%40", "test-token", nil)
	body = decodeBody(t, recorder)
	meta = body["meta"].(map[string]interface{})
	assert.EqualValues(t, 1, meta["total"])

	// filters combine with AND
	recorder = performRequest(router, "GET", "/contacts?name=Last1&phone=0812320", "test-token", nil)
	body = decodeBody(t, recorder)
	meta = body["meta"].(map[string]interface{})
	assert.EqualValues(t, 0, meta["total"])
	assert.Len(t, body["data"], 0)
}

// ---------------------------------------------------------------------------------//
// Address endpoints
// --------------------------------------------------------------------------------//

func TestAddressLifecycle(t *testing.T) {
	models.InitializeTestDb()
	router := NewRouter()
	owner := seedUser(t, "test", "secret", "test-token")
	contact := seedContact(t, owner, "Marli", "Sumarli", "marli@example.com", "1234567890")
	basePath := fmt.Sprintf("/contacts/%v/addresses", contact.ID)

	recorder := performRequest(router, "POST", basePath, "test-token", map[string]string{
		"street":      "Jalan",
		"city":        "Jakarta",
		"province":    "DKI Jakarta",
		"country":     "Indonesia",
		"postal_code": "2312",
	})
	assert.Equal(t, http.StatusCreated, recorder.Code)
	data := dataMap(t, decodeBody(t, recorder))
	assert.Equal(t, "Indonesia", data["country"])
	addressID := fmt.Sprintf("%v", data["id"])

	recorder = performRequest(router, "GET", basePath, "test-token", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Len(t, decodeBody(t, recorder)["data"], 1)

	recorder = performRequest(router, "GET", basePath+"/"+addressID, "test-token", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Jakarta", dataMap(t, decodeBody(t, recorder))["city"])

	recorder = performRequest(router, "PUT", basePath+"/"+addressID, "test-token", map[string]string{
		"street":      "Jalan Baru",
		"city":        "Bandung",
		"province":    "Jawa Barat",
		"country":     "Indonesia",
		"postal_code": "40111",
	})
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Bandung", dataMap(t, decodeBody(t, recorder))["city"])

	recorder = performRequest(router, "DELETE", basePath+"/"+addressID, "test-token", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, true, decodeBody(t, recorder)["data"])

	recorder = performRequest(router, "GET", basePath+"/"+addressID, "test-token", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestAddressValidation(t *testing.T) {
	models.InitializeTestDb()
	router := NewRouter()
	owner := seedUser(t, "test", "secret", "test-token")
	contact := seedContact(t, owner, "Marli", "Sumarli", "marli@example.com", "1234567890")

	recorder := performRequest(router, "POST", fmt.Sprintf("/contacts/%v/addresses", contact.ID), "test-token",
		map[string]string{"street": "Jalan"})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, errorMessages(decodeBody(t, recorder), "country"), "The country field is required.")
}

func TestAddressUnderWrongContactResolvesAsNotFound(t *testing.T) {
	models.InitializeTestDb()
	router := NewRouter()
	owner := seedUser(t, "test", "secret", "test-token")
	seedUser(t, "attacker", "secret", "attacker-token")
	contactA := seedContact(t, owner, "A", "A", "a@example.com", "1")
	contactB := seedContact(t, owner, "B", "B", "b@example.com", "2")

	address := models.Address{Street: "Jalan", Country: "Indonesia"}
	require.Nil(t, contactA.AddAddress(&address))

	// the address exists, but not under this contact - even though the
	// principal owns both contacts
	path := fmt.Sprintf("/contacts/%v/addresses/%v", contactB.ID, address.ID)
	recorder := performRequest(router, "GET", path, "test-token", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Contains(t, errorMessages(decodeBody(t, recorder), "message"), "Not found")

	// a foreign user fails at the parent-contact hop
	path = fmt.Sprintf("/contacts/%v/addresses/%v", contactA.ID, address.ID)
	recorder = performRequest(router, "GET", path, "attacker-token", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestDeleteContactRemovesAddresses(t *testing.T) {
	models.InitializeTestDb()
	router := NewRouter()
	owner := seedUser(t, "test", "secret", "test-token")
	contact := seedContact(t, owner, "Marli", "Sumarli", "marli@example.com", "1234567890")

	address := models.Address{Street: "Jalan", Country: "Indonesia"}
	require.Nil(t, contact.AddAddress(&address))

	recorder := performRequest(router, "DELETE", fmt.Sprintf("/contacts/%v", contact.ID), "test-token", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	_, err := models.FindContactAddress(contact.ID, fmt.Sprintf("%v", address.ID))
	assert.NotNil(t, err, "no orphaned address rows should remain")
}
