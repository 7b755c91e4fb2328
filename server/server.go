package server

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/msumarli/rolodex/server/logger"
	"github.com/msumarli/rolodex/server/models"
	"github.com/spf13/viper"
)

var logg = logger.New(false)

func Start(config *viper.Viper) {
	err := models.AutoMigrate(config.GetString("sqlite.passPhrase"), config.GetString("sqlite.dir"))
	fatalOnError(err)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%v", config.GetInt("listener.port")),
		Handler: NewRouter(),
	}

	go serve(server)

	sigChannel := make(chan os.Signal, 1)
	signal.Notify(sigChannel, syscall.SIGINT, syscall.SIGTERM)
	<-sigChannel

	cleanup(server)
}

// NewRouter mounts the full route table. Everything under the protected
// subrouter sits behind authMiddleware; id segments only match digits, so
// non-numeric ids fall through to the router's 404.
func NewRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware, jsonContentTypeMiddleware)

	router.HandleFunc("/users", registerUser).Methods("POST")
	router.HandleFunc("/users/login", logIn).Methods("POST")

	protected := router.PathPrefix("/").Subrouter()
	protected.Use(authMiddleware)

	protected.HandleFunc("/users/current", getCurrentUser).Methods("GET")
	protected.HandleFunc("/users/current", updateCurrentUser).Methods("PATCH")
	protected.HandleFunc("/users/logout", logOut).Methods("DELETE")

	protected.HandleFunc("/contacts", createContact).Methods("POST")
	protected.HandleFunc("/contacts", searchContacts).Methods("GET")
	protected.HandleFunc("/contacts/{id:[0-9]+}", getContact).Methods("GET")
	protected.HandleFunc("/contacts/{id:[0-9]+}", updateContact).Methods("PUT")
	protected.HandleFunc("/contacts/{id:[0-9]+}", deleteContact).Methods("DELETE")

	protected.HandleFunc("/contacts/{id:[0-9]+}/addresses", createAddress).Methods("POST")
	protected.HandleFunc("/contacts/{id:[0-9]+}/addresses", listAddresses).Methods("GET")
	protected.HandleFunc("/contacts/{id:[0-9]+}/addresses/{aid:[0-9]+}", getAddress).Methods("GET")
	protected.HandleFunc("/contacts/{id:[0-9]+}/addresses/{aid:[0-9]+}", updateAddress).Methods("PUT")
	protected.HandleFunc("/contacts/{id:[0-9]+}/addresses/{aid:[0-9]+}", deleteAddress).Methods("DELETE")

	return router
}
