package main

import (
	"flag"
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/ngaut/log"

	"github.com/pingcap-incubator/tinytxn/kv/config"
	"github.com/pingcap-incubator/tinytxn/kv/kvstore"
	"github.com/pingcap-incubator/tinytxn/kv/transaction"
	"github.com/pingcap-incubator/tinytxn/kv/workload"
)

var (
	configPath = flag.String("config", "", "config file path")
	mode       = flag.String("mode", "", "concurrency control mode: pessimistic or optimistic")
	entries    = flag.Int("entries", 0, "number of account records to seed")
)

func main() {
	flag.Parse()
	conf := loadConfig()
	log.SetLevelByString(conf.LogLevel)
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	log.Infof("conf %v", conf)

	store := kvstore.New()
	for i := 1; i <= conf.EntryCount; i++ {
		key := uint64(i)
		store.Put(key, kvstore.NewRecord(key, float64(i)*100))
	}
	dump(store, "accounts before deposit")

	coord := transaction.NewCoordinator(store)
	txnMode := transaction.Pessimistic
	if conf.Mode == "optimistic" {
		txnMode = transaction.Optimistic
	}

	workers := make([]*workload.Worker, len(conf.Deposits))
	for i, amount := range conf.Deposits {
		order := workload.Ascending
		if i%2 == 1 {
			order = workload.Descending
		}
		workers[i] = &workload.Worker{
			Name:        fmt.Sprintf("worker-%d", i+1),
			Coordinator: coord,
			Mode:        txnMode,
			KeyCount:    conf.EntryCount,
			Amount:      amount,
			Order:       order,
			Timeout:     config.ParseDuration(conf.TxnTimeout),
			UpdatePause: config.ParseDuration(conf.UpdatePause),
			CommitPause: config.ParseDuration(conf.CommitPause),
			MaxRetries:  conf.MaxRetries,
		}
	}

	results := make([]*workload.Result, len(workers))
	errs := make([]error, len(workers))
	var wg sync.WaitGroup
	for i, w := range workers {
		wg.Add(1)
		go func(i int, w *workload.Worker) {
			defer wg.Done()
			log.Infof("%s depositing %v per account, %v order", w.Name, w.Amount, w.Order)
			results[i], errs[i] = w.Run()
		}(i, w)
	}
	wg.Wait()

	for i, res := range results {
		if errs[i] != nil {
			log.Warnf("%s finished %v after %d attempt(s): %v", res.Name, res.State, res.Attempts, errs[i])
		} else {
			log.Infof("%s finished %v after %d attempt(s)", res.Name, res.State, res.Attempts)
		}
	}
	dump(store, "accounts after deposit")
}

func dump(store *kvstore.Store, header string) {
	fmt.Println(header)
	for _, rec := range store.Snapshot() {
		fmt.Printf("[%d] = %v\n", rec.ID, rec)
	}
}

func loadConfig() *config.Config {
	conf := config.DefaultConf
	if *configPath != "" {
		if _, err := toml.DecodeFile(*configPath, &conf); err != nil {
			log.Fatalf("decode config file %s failed: %v", *configPath, err)
		}
	}
	if *mode != "" {
		conf.Mode = *mode
	}
	if *entries != 0 {
		conf.EntryCount = *entries
	}
	if err := conf.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	return &conf
}
