// phonemeow - a phone number identity resolution and contact sync engine.
// Copyright (C) 2024 Tulir Asokan
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"os"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"go.mau.fi/util/dbutil"
	"go.mau.fi/util/exerrors"
	"go.mau.fi/util/exzerolog"
	flag "maunium.net/go/mauflag"

	"go.mau.fi/phonemeow/pkg/phonemeow"
	"go.mau.fi/phonemeow/pkg/phonemeow/addressbook"
	"go.mau.fi/phonemeow/pkg/phonemeow/store"
	"go.mau.fi/phonemeow/pkg/phonemeow/web"
)

//go:embed example-config.yaml
var ExampleConfig string

// Filled at build time with the -X linker flag.
var (
	Tag       = "unknown"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var configPath = flag.MakeFull("c", "config", "The path to the config file.", "config.yaml").String()
var generateConfig = flag.MakeFull("g", "generate-config", "Write the example config to the config path and quit.", "false").Bool()
var version = flag.MakeFull("v", "version", "Print the version and quit.", "false").Bool()
var wantHelp, _ = flag.MakeHelpFlag()

func main() {
	flag.SetHelpTitles("phonemeow - phone number identity resolution and contact sync daemon.", "phonemeow [-c <path>] [-g]")
	if err := flag.Parse(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.PrintHelp()
		os.Exit(1)
	} else if *wantHelp {
		flag.PrintHelp()
		return
	} else if *version {
		fmt.Printf("phonemeow %s (%s, built %s)\n", Tag, Commit, BuildTime)
		return
	} else if *generateConfig {
		exerrors.PanicIfNotNil(os.WriteFile(*configPath, []byte(ExampleConfig), 0o600))
		fmt.Println("Wrote example config to", *configPath)
		return
	}

	cfg := exerrors.Must(loadConfig(*configPath))
	level := exerrors.Must(zerolog.ParseLevel(cfg.Logging.MinLevel))
	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger().Level(level)
	exzerolog.SetupDefaults(&log)

	ctx := log.WithContext(context.Background())
	db := exerrors.Must(dbutil.NewWithDialect(cfg.Database.URI, cfg.Database.Type))
	db.Log = dbutil.ZeroLogger(log.With().Str("db_section", "main").Logger())
	container := store.NewStore(db, dbutil.ZeroLogger(log.With().Str("db_section", "phonemeow").Logger()))
	exerrors.PanicIfNotNil(container.Upgrade(ctx))

	directory := web.NewKVClient(cfg.Directory.BaseURL, cfg.Directory.AuthToken, log)
	provider := addressbook.NewVCardProvider(cfg.AddressBook.VCardPath)
	client := phonemeow.NewClient(ctx, cfg.AccountID, directory, provider, container.PairQuery(), container.SnapshotQuery(), nil, log)

	var metrics *MetricsHandler
	if cfg.Metrics.Enabled {
		metrics = NewMetricsHandler(cfg.Metrics.Listen, log, client)
		go metrics.Start()
	}
	api := NewAPI(client, log, metrics)

	if cfg.Directory.Watch {
		go watchDirectory(ctx, directory, api, log)
	}

	log.Info().Str("listen", cfg.Listen).Msg("Starting phonemeow API")
	err := http.ListenAndServe(cfg.Listen, api.Router)
	log.Fatal().Err(err).Msg("API server stopped")
}

// watchDirectory resyncs on pushed server hash set changes instead of
// waiting for the next API-triggered poll.
func watchDirectory(ctx context.Context, directory *web.KVClient, api *API, log zerolog.Logger) {
	updates, err := directory.WatchServerHashes(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Directory watch unavailable, relying on polled syncs")
		return
	}
	for range updates {
		log.Debug().Msg("Server hash set changed, resyncing")
		if _, err := api.syncContacts(ctx, false); err != nil {
			log.Warn().Err(err).Msg("Push-triggered resync failed")
		}
	}
}
