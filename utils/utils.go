package utils

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"syscall"

	"github.com/Decode-Labs-Web3/deid-snapshot-engine/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// Config is the globally accessible configuration
var Config *types.Config

var addressRE = regexp.MustCompile("^(0x)?[0-9a-fA-F]{40}$")

func readConfigEnv(cfg *types.Config) error {
	return envconfig.Process("", cfg)
}

func readConfigSecrets(cfg *types.Config) error {
	return ProcessSecrets(cfg)
}

// ReadConfig will process a configuration
func ReadConfig(cfg *types.Config, path string) error {
	err := readConfigFile(cfg, path)
	if err != nil {
		return err
	}

	readConfigEnv(cfg)
	err = readConfigSecrets(cfg)
	if err != nil {
		return err
	}

	if cfg.Snapshot.CooldownSeconds == 0 {
		cfg.Snapshot.CooldownSeconds = 3600
	}
	if cfg.Snapshot.IntervalSeconds == 0 {
		cfg.Snapshot.IntervalSeconds = cfg.Snapshot.CooldownSeconds
	}
	if cfg.Snapshot.InteractionRatio == 0 {
		cfg.Snapshot.InteractionRatio = 0.3
	}
	if cfg.Chain.CacheTtlSeconds == 0 {
		cfg.Chain.CacheTtlSeconds = 60
	}
	if cfg.ContentStore.TimeoutSeconds == 0 {
		cfg.ContentStore.TimeoutSeconds = 30
	}
	if cfg.Identity.TimeoutSeconds == 0 {
		cfg.Identity.TimeoutSeconds = 30
	}
	if cfg.ContentStore.FetchCacheSize == 0 {
		cfg.ContentStore.FetchCacheSize = 128
	}
	if cfg.Identity.CacheTtlSeconds == 0 {
		cfg.Identity.CacheTtlSeconds = 60
	}

	if cfg.Validator.Owner != "" && !IsAddress(cfg.Validator.Owner) {
		return fmt.Errorf("error in config file: invalid validator owner address %v", cfg.Validator.Owner)
	}
	for _, addr := range cfg.Snapshot.Addresses {
		if !IsAddress(addr) {
			return fmt.Errorf("error in config file: invalid snapshot address %v", addr)
		}
	}

	logrus.WithFields(logrus.Fields{
		"chainId":         cfg.Chain.ChainID,
		"rpcEndpoint":     cfg.Chain.RpcEndpoint,
		"cooldownSeconds": cfg.Snapshot.CooldownSeconds,
		"monotonicIds":    cfg.Snapshot.RequireMonotonicIDs,
		"owner":           cfg.Validator.Owner,
	}).Infof("did init config")

	return nil
}

func readConfigFile(cfg *types.Config, path string) error {
	if path == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening config file %v: %v", path, err)
	}

	decoder := yaml.NewDecoder(f)
	err = decoder.Decode(cfg)
	if err != nil {
		return fmt.Errorf("error decoding config file %v: %v", path, err)
	}

	return nil
}

// LogFatal logs a fatal error with callstack info that skips callerSkip many levels with arbitrarily many additional infos.
// callerSkip equal to 0 gives you info directly where LogFatal is called.
func LogFatal(err error, errorMsg interface{}, callerSkip int, additionalInfos ...string) {
	logErrorInfo(err, callerSkip, additionalInfos...).Fatal(errorMsg)
}

// LogError logs an error with callstack info that skips callerSkip many levels with arbitrarily many additional infos.
// callerSkip equal to 0 gives you info directly where LogError is called.
func LogError(err error, errorMsg interface{}, callerSkip int, additionalInfos ...string) {
	logErrorInfo(err, callerSkip, additionalInfos...).Error(errorMsg)
}

func logErrorInfo(err error, callerSkip int, additionalInfos ...string) *logrus.Entry {
	logFields := logrus.NewEntry(logrus.New())

	pc, fullFilePath, line, ok := runtime.Caller(callerSkip + 2)
	if ok {
		logFields = logFields.WithFields(logrus.Fields{
			"cs_file":     filepath.Base(fullFilePath),
			"cs_function": runtime.FuncForPC(pc).Name(),
			"cs_line":     line,
		})
	} else {
		logFields = logFields.WithField("runtime", "Callstack cannot be read")
	}

	if err != nil {
		logFields = logFields.WithField("error type", fmt.Sprintf("%T", err)).WithError(err)
	}

	for idx, info := range additionalInfos {
		logFields = logFields.WithField(fmt.Sprintf("info_%v", idx), info)
	}

	return logFields
}

// IsAddress verifies whether a string represents a 20-byte hex address.
func IsAddress(s string) bool {
	return addressRE.MatchString(s)
}

// NormalizeAddress returns the canonical lowercase-hex form of an address.
// Snapshot records and merkle leaves always carry this form.
func NormalizeAddress(s string) string {
	return strings.ToLower(common.HexToAddress(s).Hex())
}

// WaitForCtrlC blocks until the process receives SIGINT or SIGTERM.
func WaitForCtrlC() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}
