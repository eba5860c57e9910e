package main

import (
	"flag"
	"net"
	"os"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/coronarchive/tekexport/assemble"
	"github.com/coronarchive/tekexport/keys"
	"github.com/coronarchive/tekexport/rpc"
)

func main() {
	fs := flag.NewFlagSet("tekverifyd", flag.ExitOnError)
	listen := fs.String("listen", "127.0.0.1:7711", "listen address")
	keysDir := fs.String("keys", "", "key store directory (default ~/.tekexport/keys)")
	policyName := fs.String("policy", "any", "trust policy: any or all")
	development := fs.Bool("dev", false, "console logging with debug level")
	_ = fs.Parse(os.Args[1:])

	var logger *zap.Logger
	var err error
	if *development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	var policy assemble.TrustPolicy
	switch *policyName {
	case "any":
		policy = assemble.TrustAnySignature
	case "all":
		policy = assemble.TrustAllSignatures
	default:
		logger.Fatal("unknown trust policy", zap.String("policy", *policyName))
	}

	ks, err := keys.CreateKeyStore(*keysDir)
	if err != nil {
		logger.Fatal("open key store", zap.Error(err))
	}
	reg, err := ks.Registry()
	if err != nil {
		logger.Fatal("load key registry", zap.Error(err))
	}

	server, err := rpc.NewServer(reg, policy, logger)
	if err != nil {
		logger.Fatal("build server", zap.Error(err))
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}
	defer lis.Close()

	s := grpc.NewServer()
	rpc.RegisterExportVerifierServer(s, server)

	logger.Info("tekverifyd listening",
		zap.String("addr", lis.Addr().String()),
		zap.String("policy", policy.String()))
	if err := s.Serve(lis); err != nil {
		logger.Fatal("serve", zap.Error(err))
	}
}
