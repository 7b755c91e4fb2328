package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator"
	"github.com/msumarli/rolodex/server/models"
)

// ---------------------------------------------------------------------------------//
// Handler helper functions
// --------------------------------------------------------------------------------//

func writeResponse(rw http.ResponseWriter, payLoad interface{}, statusCode int) {
	rw.WriteHeader(statusCode)
	json.NewEncoder(rw).Encode(payLoad)
}

func writeErrors(rw http.ResponseWriter, errs map[string][]string, statusCode int) {
	if statusCode >= http.StatusInternalServerError {
		logg.Error(errs)
	} else if statusCode >= http.StatusBadRequest {
		logg.Info(errs)
	}

	writeResponse(rw, ErrorPayload{Error: errs}, statusCode)
}

func writeError(rw http.ResponseWriter, statusCode int, field string, messages ...string) {
	writeErrors(rw, map[string][]string{field: messages}, statusCode)
}

func writeValidationErrors(rw http.ResponseWriter, err error) {
	writeErrors(rw, validationErrors(err), http.StatusBadRequest)
}

// writeNotFound is the single not-found response used for missing ids AND
// for resources owned by someone else - the two cases must stay
// indistinguishable on the wire.
func writeNotFound(rw http.ResponseWriter) {
	writeError(rw, http.StatusNotFound, "message", "Not found")
}

func writeUnauthorized(rw http.ResponseWriter) {
	writeError(rw, http.StatusUnauthorized, "message", "Unauthorized")
}

func writeInternalError(rw http.ResponseWriter, err error) {
	logg.Error(err)
	writeError(rw, http.StatusInternalServerError, "message", "Something went wrong")
}

func decodeRequestBody(r *http.Request, payload interface{}) error {
	return json.NewDecoder(r.Body).Decode(payload)
}

// validationErrors shapes validator failures into the error envelope's
// field->messages map, keyed by json field names.
func validationErrors(err error) map[string][]string {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string][]string{"message": {err.Error()}}
	}

	errs := map[string][]string{}
	for _, fieldErr := range fieldErrs {
		field := fieldErr.Field()
		errs[field] = append(errs[field], validationMessage(field, fieldErr))
	}

	return errs
}

func validationMessage(field string, fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return fmt.Sprintf("The %v field is required.", field)
	case "email":
		return fmt.Sprintf("The %v field must be a valid email address.", field)
	case "max":
		return fmt.Sprintf("The %v field must not be greater than %v characters.", field, fieldErr.Param())
	}

	return fmt.Sprintf("The %v field is invalid.", field)
}

func removeUnknownFields(args map[string]interface{}, validFields map[string]bool) {
	for key := range args {
		if !validFields[key] {
			delete(args, key)
		}
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	value, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}

	return value
}

// ---------------------------------------------------------------------------------//
// Server helper functions
// --------------------------------------------------------------------------------//

func serve(server *http.Server) {
	logg.Infof("Rolodex server is listening on port%v", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Fatal(err)
	}
}

func cleanup(server *http.Server) {
	ctxShutDown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutDown); err != nil {
		logg.Fatalf("Rolodex server shutdown failed:%+s", err)
	}

	logg.Infof("Rolodex server stopped properly")
}

func fatalOnError(err error) {
	if err != nil {
		logg.Fatal(err)
	}
}

// currentUser returns the principal bound to the request context by
// authMiddleware. Handlers behind the protected subrouter can rely on it
// being present.
func currentUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(RequestContextKey("currentUser")).(*models.User)
	return user
}
