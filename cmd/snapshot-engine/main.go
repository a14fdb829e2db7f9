package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/Decode-Labs-Web3/deid-snapshot-engine/chain"
	"github.com/Decode-Labs-Web3/deid-snapshot-engine/contentstore"
	"github.com/Decode-Labs-Web3/deid-snapshot-engine/db"
	"github.com/Decode-Labs-Web3/deid-snapshot-engine/identity"
	"github.com/Decode-Labs-Web3/deid-snapshot-engine/ledger"
	"github.com/Decode-Labs-Web3/deid-snapshot-engine/metrics"
	"github.com/Decode-Labs-Web3/deid-snapshot-engine/scores"
	"github.com/Decode-Labs-Web3/deid-snapshot-engine/services"
	"github.com/Decode-Labs-Web3/deid-snapshot-engine/signer"
	"github.com/Decode-Labs-Web3/deid-snapshot-engine/types"
	"github.com/Decode-Labs-Web3/deid-snapshot-engine/utils"
	"github.com/Decode-Labs-Web3/deid-snapshot-engine/version"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
)

func main() {
	configPath := flag.String("config", "", "Path to the config file, if empty string defaults will be used")
	flag.Parse()

	cfg := &types.Config{}
	err := utils.ReadConfig(cfg, *configPath)
	if err != nil {
		utils.LogFatal(err, "error reading config file", 0)
	}
	utils.Config = cfg
	logrus.WithField("config", *configPath).WithField("version", version.Version).WithField("chainId", cfg.Chain.ChainID).Printf("starting")

	// enable pprof endpoint if requested
	if cfg.Pprof.Enabled {
		go func() {
			logrus.Infof("starting pprof http server on port %s", cfg.Pprof.Port)
			logrus.Info(http.ListenAndServe(fmt.Sprintf("localhost:%s", cfg.Pprof.Port), nil))
		}()
	}

	if cfg.Metrics.Enabled {
		go func() {
			logrus.Infof("starting metrics http server on port %s", cfg.Metrics.Port)
			logrus.Info(metrics.Serve(cfg.Metrics.Port))
		}()
	}

	mongo, err := db.InitMongodb(cfg.MongoDB.ConnectionString, cfg.MongoDB.Instance, fmt.Sprintf("%d", cfg.Chain.ChainID))
	if err != nil {
		utils.LogFatal(err, "error initializing mongodb", 0)
	}
	db.MongodbClient = mongo
	defer mongo.Close()

	contributions, err := db.NewRedisContributionStore(cfg.Redis.Endpoint, cfg.Redis.Password, cfg.Redis.KeyPrefix)
	if err != nil {
		utils.LogFatal(err, "error initializing redis", 0)
	}
	defer contributions.Close()

	activity, err := chain.NewClient(cfg.Chain.RpcEndpoint, time.Duration(cfg.Chain.CacheTtlSeconds)*time.Second)
	if err != nil {
		utils.LogFatal(err, "error initializing chain client", 0)
	}
	defer activity.Close()

	identityClient := identity.NewClient(cfg.Identity.Endpoint, time.Duration(cfg.Identity.TimeoutSeconds)*time.Second, time.Duration(cfg.Identity.CacheTtlSeconds)*time.Second)

	ipfs := contentstore.NewIpfsStore(cfg.ContentStore.Endpoint, time.Duration(cfg.ContentStore.TimeoutSeconds)*time.Second)
	store, err := contentstore.NewCachedStore(ipfs, cfg.ContentStore.FetchCacheSize)
	if err != nil {
		utils.LogFatal(err, "error initializing content store", 0)
	}

	snapshotSigner, err := signer.NewSigner(cfg.Validator.PrivateKey)
	if err != nil {
		utils.LogFatal(err, "error initializing signer", 0)
	}

	owner := common.HexToAddress(cfg.Validator.Owner)
	verifier := ledger.NewVerifier(ledger.Config{
		Owner:               owner,
		CooldownSeconds:     cfg.Snapshot.CooldownSeconds,
		RequireMonotonicIDs: cfg.Snapshot.RequireMonotonicIDs,
		Archive:             mongo,
	})
	if err := verifier.AddValidator(owner, snapshotSigner.Address()); err != nil {
		utils.LogFatal(err, "error authorizing validator", 0)
	}

	// resume replay protection and the cooldown from the archived sequence
	archived, err := mongo.GetLatestCommitment(context.Background())
	if err != nil && err != mongodriver.ErrNoDocuments {
		utils.LogFatal(err, "error reading latest archived commitment", 0)
	}
	if archived != nil {
		verifier.Restore(archived)
		logrus.WithField("snapshotId", archived.ID).Info("restored latest archived commitment")
	}

	collector := scores.NewCollector(
		activity,
		identityClient,
		identityClient,
		identityClient,
		contributions,
		scores.RatioEstimator{Ratio: cfg.Snapshot.InteractionRatio},
	)

	snapshotter := services.NewSnapshotter(
		collector,
		scores.NewCalculator(),
		store,
		snapshotSigner,
		verifier,
		services.StaticAddressSource(cfg.Snapshot.Addresses),
	).WithArchive(mongo)

	ctx, cancel := context.WithCancel(context.Background())
	go snapshotter.Run(ctx, time.Duration(cfg.Snapshot.IntervalSeconds)*time.Second)

	logrus.WithField("validator", snapshotSigner.Address().Hex()).Infof("snapshot engine running")
	utils.WaitForCtrlC()
	cancel()

	logrus.Println("exiting...")
}
