// dns-test-srv runs a local DNS and HTTP-01 challenge server for
// exercising the library's method handlers end-to-end without real network
// infrastructure; it serves no TLS-ALPN-01 challenges. It wraps
// challtestsrv directly rather than answering queries by hand, and adds a
// tiny HTTP control API on top so a test driver can script TXT/HTTP
// responses.
package main

import (
	"encoding/json"
	"flag"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/letsencrypt/challtestsrv"
)

type setTXTRequest struct {
	Host  string `json:"host"`
	Value string `json:"value"`
}

type setHTTPRequest struct {
	Token   string `json:"token"`
	Content string `json:"content"`
}

type controlServer struct {
	chall *challtestsrv.ChallSrv
}

func (c *controlServer) setDNS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req setTXTRequest
	if err := json.Unmarshal(body, &req); err != nil || req.Host == "" {
		http.Error(w, "host and value are required", http.StatusBadRequest)
		return
	}
	c.chall.AddDNSOneChallenge(req.Host, req.Value)
	w.WriteHeader(http.StatusOK)
}

func (c *controlServer) deleteDNS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req setTXTRequest
	if err := json.Unmarshal(body, &req); err != nil || req.Host == "" {
		http.Error(w, "host is required", http.StatusBadRequest)
		return
	}
	c.chall.DeleteDNSOneChallenge(req.Host)
	w.WriteHeader(http.StatusOK)
}

func (c *controlServer) setHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req setHTTPRequest
	if err := json.Unmarshal(body, &req); err != nil || req.Token == "" {
		http.Error(w, "token and content are required", http.StatusBadRequest)
		return
	}
	c.chall.AddHTTPOneChallenge(req.Token, req.Content)
	w.WriteHeader(http.StatusOK)
}

func main() {
	dnsAddr := flag.String("dns-addr", "127.0.0.1:8053", "address the fake DNS resolver listens on")
	httpAddr := flag.String("http-addr", "127.0.0.1:8056", "address the fake HTTP-01 challenge server listens on")
	controlAddr := flag.String("control-addr", "127.0.0.1:8055", "address the control API listens on")
	fakeDNS := flag.String("fake-dns", "127.0.0.1", "IPv4 address returned for every A lookup")
	flag.Parse()

	chall, err := challtestsrv.New(challtestsrv.Config{
		DNSOneAddrs:  []string{*dnsAddr},
		HTTPOneAddrs: []string{*httpAddr},
		Log:          log.New(os.Stdout, "dns-test-srv: ", log.LstdFlags),
	})
	if err != nil {
		log.Fatalf("dns-test-srv: constructing challenge server: %s", err)
	}
	chall.SetDefaultDNSIPv4(*fakeDNS)
	chall.SetDefaultDNSIPv6("")

	go chall.Run()
	defer chall.Shutdown()

	ctrl := &controlServer{chall: chall}
	mux := http.NewServeMux()
	mux.HandleFunc("/set-txt", ctrl.setDNS)
	mux.HandleFunc("/delete-txt", ctrl.deleteDNS)
	mux.HandleFunc("/set-http", ctrl.setHTTP)

	log.Printf("dns-test-srv: control API listening on %s, DNS on %s, HTTP-01 on %s", *controlAddr, *dnsAddr, *httpAddr)
	log.Fatal(http.ListenAndServe(*controlAddr, mux))
}
