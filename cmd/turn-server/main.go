// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"syscall"

	"gopkg.in/ini.v1"

	turn "github.com/turnrelay/core"
	"github.com/turnrelay/core/internal/authtest"
)

type serverConfig struct {
	udpPort int
	users   map[string]string
	realm   string
	relayIP string
}

var credentialPairRe = regexp.MustCompile(`(\w+)=(\w+)`)

func configFromINI(path string) (serverConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return serverConfig{}, err
	}

	port, err := cfg.Section("server").Key("port").Int()
	if err != nil {
		return serverConfig{}, err
	}

	return serverConfig{
		udpPort: port,
		users:   parseCredentialPairs(cfg.Section("users").Key("users").String()),
		realm:   cfg.Section("users").Key("realm").String(),
		relayIP: cfg.Section("server").Key("relay_ip").String(),
	}, nil
}

func configFromEnv() (serverConfig, error) {
	realm := os.Getenv("REALM")
	if realm == "" {
		return serverConfig{}, errMissingEnv("REALM")
	}

	usersString := os.Getenv("USERS")
	if usersString == "" {
		return serverConfig{}, errMissingEnv("USERS")
	}

	udpPortStr := os.Getenv("UDP_PORT")
	if udpPortStr == "" {
		return serverConfig{}, errMissingEnv("UDP_PORT")
	}
	udpPort, err := strconv.Atoi(udpPortStr)
	if err != nil {
		return serverConfig{}, err
	}

	relayIP := os.Getenv("RELAY_IP")
	if relayIP == "" {
		relayIP = "127.0.0.1"
	}

	return serverConfig{
		udpPort: udpPort,
		users:   parseCredentialPairs(usersString),
		realm:   realm,
		relayIP: relayIP,
	}, nil
}

func parseCredentialPairs(s string) map[string]string {
	users := make(map[string]string)
	for _, kv := range credentialPairRe.FindAllStringSubmatch(s, -1) {
		users[kv[1]] = kv[2]
	}
	return users
}

type errMissingEnv string

func (e errMissingEnv) Error() string { return string(e) + " is a required environment variable" }

func main() {
	cfgPath := flag.String("cfg", "", "INI configuration file; falls back to REALM/USERS/UDP_PORT/RELAY_IP env vars when empty")
	flag.Parse()

	var (
		cfg serverConfig
		err error
	)
	if *cfgPath != "" {
		cfg, err = configFromINI(*cfgPath)
	} else {
		cfg, err = configFromEnv()
	}
	if err != nil {
		log.Fatal(err)
	}

	relayIP, perr := turn.ParseIP(cfg.relayIP)
	if perr != nil {
		log.Fatal(perr)
	}

	creds := &authtest.StaticCredentials{Realm: cfg.realm, Passwords: cfg.users}

	server, err := turn.NewServer(turn.ServerConfig{
		Realm:       cfg.realm,
		AuthHandler: creds.Handler(),
		RelayIP:     relayIP,
		ListenerConfigs: []turn.ListenerConfig{
			{Network: "udp4", Address: net.JoinHostPort("0.0.0.0", strconv.Itoa(cfg.udpPort))},
		},
	})
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("turn-server listening on UDP %d, realm %q", cfg.udpPort, cfg.realm)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	if err := server.Close(); err != nil {
		log.Fatal(err)
	}
}
