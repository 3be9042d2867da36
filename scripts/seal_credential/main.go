package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"signal-gateway/pkg/crypto"
	"signal-gateway/pkg/logger"
)

// seal_credential prints ENC[vN]: values for the accounts registry.
//
// Usage:
//
//	go run ./scripts/seal_credential -genkey
//	    prints a fresh base64 master key for CREDENTIALS_MASTER_KEY
//
//	echo -n "$SECRET" | go run ./scripts/seal_credential -label BINGX_1_API_SECRET
//	    seals stdin with the newest loaded master key; the label must be the
//	    variable name the sealed value will be stored under
//
//	go run ./scripts/seal_credential -reseal -label BINGX_1_API_SECRET < old.txt
//	    re-encrypts an existing sealed value with the newest key version

func main() {
	genKey := flag.Bool("genkey", false, "print a new base64 master key and exit")
	label := flag.String("label", "", "environment variable name the value is bound to")
	reseal := flag.Bool("reseal", false, "input is already sealed; re-encrypt with the newest key")
	prefix := flag.String("prefix", crypto.DefaultKeyPrefix, "master key variable prefix")
	flag.Parse()

	log := logger.Must("info", "console", "seal_credential")
	defer func() { _ = log.Sync() }()

	if *genKey {
		key, err := crypto.GenerateKey()
		if err != nil {
			log.Fatal("generate key failed", zap.Error(err))
		}
		fmt.Println(key)
		return
	}

	if *label == "" {
		log.Fatal("-label is required")
	}

	kr, err := crypto.LoadKeyring(os.LookupEnv, *prefix)
	if err != nil {
		log.Fatal("master key load failed", zap.Error(err))
	}
	if kr.CurrentVersion() == 0 {
		log.Fatal("master key is not set", zap.String("variable", *prefix))
	}

	in, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && in == "" {
		log.Fatal("read stdin failed", zap.Error(err))
	}
	in = strings.TrimRight(in, "\r\n")

	var out string
	if *reseal {
		out, err = kr.Reseal(in, *label)
	} else {
		out, err = kr.Seal(in, *label)
	}
	if err != nil {
		log.Fatal("seal failed", zap.Error(err))
	}
	fmt.Println(out)
}
