package musk

import (
	"github.com/btcsuite/btclog"
	"github.com/lightningnetwork/lnd/build"
	"github.com/musk-sdk/musk/client"
	"github.com/musk-sdk/musk/program"
	"github.com/musk-sdk/musk/spend"
)

// Subsystem defines the logging code of the tools built on top of the SDK.
const Subsystem = "MUSK"

// genSubLogger creates a logger for a subsystem. The shutdown function is
// called when a critical error is logged.
func genSubLogger(root *build.RotatingLogWriter,
	shutdown func()) func(string) btclog.Logger {

	if shutdown == nil {
		shutdown = func() {}
	}

	return func(tag string) btclog.Logger {
		return root.GenSubLogger(tag, shutdown)
	}
}

// SetupLoggers creates and registers the loggers of all SDK packages with the
// root logger and returns the logger of the calling tool.
func SetupLoggers(root *build.RotatingLogWriter,
	shutdown func()) btclog.Logger {

	genLogger := genSubLogger(root, shutdown)

	muskLog := build.NewSubLogger(Subsystem, genLogger)
	SetSubLogger(root, Subsystem, muskLog)

	AddSubLogger(root, program.Subsystem, genLogger, program.UseLogger)
	AddSubLogger(root, spend.Subsystem, genLogger, spend.UseLogger)
	AddSubLogger(root, client.Subsystem, genLogger, client.UseLogger)

	return muskLog
}

// AddSubLogger is a helper method to conveniently create and register the
// logger of one or more sub systems.
func AddSubLogger(root *build.RotatingLogWriter, subsystem string,
	genLogger func(string) btclog.Logger,
	useLoggers ...func(btclog.Logger)) {

	// Create and register just a single logger to prevent them from
	// overwriting each other internally.
	logger := build.NewSubLogger(subsystem, genLogger)
	SetSubLogger(root, subsystem, logger, useLoggers...)
}

// SetSubLogger is a helper method to conveniently register the logger of a sub
// system.
func SetSubLogger(root *build.RotatingLogWriter, subsystem string,
	logger btclog.Logger, useLoggers ...func(btclog.Logger)) {

	root.RegisterSubLogger(subsystem, logger)
	for _, useLogger := range useLoggers {
		useLogger(logger)
	}
}
