package main

import (
	"log"
	"os"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/account"
	filestore "github.com/trezcool/elimu/storage/record/file"
	memstore "github.com/trezcool/elimu/storage/record/memory"
	pgstore "github.com/trezcool/elimu/storage/record/postgres"
	redisstore "github.com/trezcool/elimu/storage/record/redis"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	store, err := openStore(conf)
	errAndDie(err)

	// start CLI
	cli := commandLine{
		acctSvc: account.NewService(account.NewRepository(store), nil, conf),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func openStore(conf *core.Config) (core.RecordStore, error) {
	switch conf.Storage.Backend {
	case "redis":
		return redisstore.Open(conf.Storage.RedisURL, conf.AppName)
	case "postgres":
		return pgstore.Open(conf.Storage.PostgresDSN)
	case "memory":
		return memstore.Open(), nil
	default:
		return filestore.Open(conf.Storage.DataDir)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
