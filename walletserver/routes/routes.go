package routes

import (
	"github.com/gorilla/mux"

	"transferledger/walletserver/controllers"
	"transferledger/walletserver/middleware"
)

// Register wires the replica and account-manager HTTP surface.
func Register(r *mux.Router, rc *controllers.ReplicaController) {
	r.Use(middleware.Logger)

	r.HandleFunc("/wallets/genesis", rc.Genesis).Methods("POST")
	r.HandleFunc("/wallets/{id}/validate", rc.Validate).Methods("POST")
	r.HandleFunc("/wallets/{id}/register", rc.Register).Methods("POST")
	r.HandleFunc("/wallets/{id}/propagate", rc.Propagate).Methods("POST")
	r.HandleFunc("/wallets/{id}/history", rc.History).Methods("GET")
	r.HandleFunc("/wallets/{id}/balance", rc.Balance).Methods("GET")

	r.HandleFunc("/accounts/{id}/put", rc.Put).Methods("POST")
	r.HandleFunc("/accounts/{id}/put-success", rc.PutSuccess).Methods("POST")
	r.HandleFunc("/accounts/{id}/put-failure", rc.PutFailure).Methods("POST")
	r.HandleFunc("/accounts/{id}/refresh", rc.Refresh).Methods("POST")
	r.HandleFunc("/accounts/churn", rc.Churn).Methods("POST")
}
