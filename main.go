package main

import (
	"fmt"
	"github.com/google/uuid"
	"github.com/thapovan-inc/orion-trace-reader/bookkeeper"
	"github.com/thapovan-inc/orion-trace-reader/consumer"
	"github.com/thapovan-inc/orion-trace-reader/registry"
	"github.com/thapovan-inc/orion-trace-reader/storage"
	"github.com/thapovan-inc/orion-trace-reader/util"
	"go.uber.org/zap"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	fmt.Println(`
   ____       _
  / __ \_____(_)___  ____
 / / / / ___/ / __ \/ __ \
/ /_/ / /  / / /_/ / / / /
\____/_/  /_/\____/_/ /_/   trace reader

	`)
	fmt.Println("Loading config file from default.toml")
	util.LoadConfigFromFile("default.toml")
	util.SetupLoggerConfig()
	logger := util.GetLogger("main", "main")
	err := storage.InitQueryExecutorFromConfig()
	if err != nil {
		logger.Fatal("Unable to init query executor", zap.Error(err))
	}
	registry.InitRegistry(storage.GetQueryExecutor())
	defer bookkeeper.Cleanup()

	if len(os.Args) > 1 {
		printTrace(os.Args[1])
		return
	}

	err = consumer.InitConsumerFromConfig()
	if err != nil {
		logger.Fatal("Unable to init span stream consumer", zap.Error(err))
	}
	spanStreamConsumer, _ := consumer.GetConsumer()
	watcher := registry.NewCompletionWatcher()
	actorPID := watcher.PrepareActor()
	topic := util.GetConfig().General.SpanTopic
	err = spanStreamConsumer.Subscribe(actorPID, topic)
	if err != nil {
		logger.Error("Unable to subscribe to topic ", zap.String("topic", topic), zap.Error(err))
	}
	sigs := make(chan os.Signal, 1)
	done := make(chan bool, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		logger.Info("Received signal. Exiting now", zap.String("signal", sig.String()))
		spanStreamConsumer.GetControlPID().Tell("sig_close")
		actorPID.Poison()
		done <- true
	}()
	<-done
}

func printTrace(arg string) {
	logger := util.GetLogger("main", "printTrace")
	traceID, err := uuid.Parse(arg)
	if err != nil {
		logger.Fatal("Not a valid trace id", zap.String("arg", arg), zap.Error(err))
	}
	handle := registry.GetRegistry().Handle(traceID)
	fmt.Println(handle)
	for _, event := range handle.Events() {
		fmt.Printf("  %s  %-40s  %s  %dµs  %s\n",
			event.Timestamp.Format("15:04:05.000000"), event.Description,
			event.Source, event.SourceElapsedMicros, event.ThreadName)
	}
}
