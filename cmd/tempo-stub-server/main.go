// tempo-stub-server runs the in-process API stand-in on a local port,
// seeded with a small dataset, for developing the client without the
// real backend.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/crra-tempo/tempo-client/internal/apitest"
)

func main() {
	var addr string
	flag.StringVar(&addr, "addr", ":8080", "Listen address")
	flag.Parse()

	logger := logrus.New()

	server := apitest.NewServer()
	server.SeedAdmin("Admin", "admin123")
	researcher := server.SeedChercheur("Nadia Benali", "secret123", "C1", "R001")
	server.SeedCodeCentres("C1", "C2", "C3")

	megaprojet := server.SeedMegaprojet("Gestion durable de l'eau")
	axe := server.SeedAxe(megaprojet, "Irrigation")
	activite := server.SeedActivite(megaprojet, axe, "Suivi des parcelles", "ACT-001", "CRRA-01")
	server.SeedLog(researcher, activite, "2024-05-02", 4)
	server.SeedExport("/monthlygeneral/2024-05", []byte("stub-spreadsheet"))

	logger.WithField("addr", addr).Info("stub API listening")
	if err := http.ListenAndServe(addr, server.Handler()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
