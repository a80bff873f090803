// Command setabd registers the streaming virtual-table module with
// SQLite and serves the debug/metrics HTTP surface. The query engine
// and driver loop themselves are out of scope; this is bootstrap
// scaffolding a caller embeds a real `database/sql` program around.
package main

import (
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-sqlite3"

	"github.com/linuxfood/setab/adapter"
	"github.com/linuxfood/setab/debugsrv"
	"github.com/linuxfood/setab/internal/nlog"
)

func main() {
	dbPath := flag.String("db", ":memory:", "sqlite3 database path")
	debugAddr := flag.String("debug-addr", ":9100", "debug/metrics HTTP listen address")
	verbosity := flag.Int("v", 0, "log verbosity")
	flag.Parse()

	nlog.SetLevel(*verbosity)

	mod := adapter.NewModule()
	sql.Register("setab", &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.CreateModule("stream_engine", mod)
		},
	})

	db, err := sql.Open("setab", *dbPath)
	if err != nil {
		nlog.Errorln("setabd: open database:", err)
		os.Exit(1)
	}
	defer db.Close()

	srv := debugsrv.New(mod.Registry)
	go func() {
		if err := srv.ListenAndServe(*debugAddr); err != nil {
			nlog.Errorln("setabd: debug server:", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	nlog.Infoln("setabd: shutting down")
	_ = srv.Shutdown()
}
