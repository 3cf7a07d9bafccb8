// Command pollnode runs a confidential polls node: storage, the FHE
// primitive, the ledger behind its gateway, the decryption relayer and the
// HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vocdoni/arbo/memdb"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/vocdoni/confidential-polls/config"
	"github.com/vocdoni/confidential-polls/decrypt"
	"github.com/vocdoni/confidential-polls/fhe"
	"github.com/vocdoni/confidential-polls/gateway"
	"github.com/vocdoni/confidential-polls/ledger"
	"github.com/vocdoni/confidential-polls/log"
	"github.com/vocdoni/confidential-polls/relayer"
	"github.com/vocdoni/confidential-polls/service"
	"github.com/vocdoni/confidential-polls/storage"
)

func main() {
	conf, err := config.Load("pollnode", os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log.Init(conf.Log.Level, conf.Log.Output, nil)

	database, err := openDatabase(conf)
	if err != nil {
		log.Fatal(err)
	}
	stg := storage.New(database)
	defer stg.Close()

	pub, priv, err := fhe.LoadOrGenerateKeys(stg, conf.FHE.Curve)
	if err != nil {
		log.Fatal(err)
	}
	l := ledger.New(stg, fhe.NewEngine(pub), conf.ContractAddress())

	kms, err := relayer.NewKMS(stg, pub, priv, conf.Decryption.MaxValue)
	if err != nil {
		log.Fatal(err)
	}
	r := relayer.New(kms, l, relayer.Config{
		Domain:       decrypt.NewDomain(conf.Chain.ID, conf.KMSContractAddress()),
		Contract:     conf.ContractAddress(),
		MaxGrantDays: conf.Decryption.MaxGrantDays,
		Timeout:      conf.Decryption.Timeout,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gs := service.NewGateway(gateway.New(l, stg, conf.Chain.ID, conf.Gateway.QueueSize))
	if err := gs.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer gs.Stop()

	as := service.NewAPI(gs.Gateway(), r, conf.API.Host, conf.API.Port, conf.Decryption.DurationDays)
	if err := as.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer as.Stop()

	log.Infow("poll node ready",
		"chainId", conf.Chain.ID,
		"contract", conf.ContractAddress().Hex(),
		"curve", conf.FHE.Curve,
		"db", conf.DBType,
		"api", fmt.Sprintf("%s:%d", conf.API.Host, conf.API.Port))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Infow("shutting down")
}

func openDatabase(conf *config.Config) (db.Database, error) {
	switch conf.DBType {
	case config.DBTypeMemory:
		return memdb.New(), nil
	default:
		return metadb.New(db.TypePebble, conf.Datadir)
	}
}
