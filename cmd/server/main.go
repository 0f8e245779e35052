package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"

	"github.com/fogiking/formpulse/internal/api"
	"github.com/fogiking/formpulse/internal/db"
	"github.com/fogiking/formpulse/internal/middleware"
	"github.com/fogiking/formpulse/internal/store"
	"github.com/fogiking/formpulse/internal/utils"
)

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	addr := utils.SafeEnv("FORMPULSE_ADDR", ":8080")
	commit := os.Getenv("FORMPULSE_COMMIT")
	buildTime := os.Getenv("FORMPULSE_BUILD_TIME")

	snap, err := openSnapshot()
	if err != nil {
		log.Fatalf("snapshot: %v", err)
	}
	repo, err := store.NewRepository(snap)
	if err != nil {
		log.Fatalf("repository: %v", err)
	}

	router, err := api.NewRouter(repo, utils.SafeEnv("FORMPULSE_ADMIN_PASSWORD", "fogiking"))
	if err != nil {
		log.Fatalf("router: %v", err)
	}

	mux := http.NewServeMux()
	router.Register(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":         true,
			"name":       "FormPulse API",
			"commit":     commit,
			"build_time": buildTime,
		})
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"commit":     commit,
			"build_time": buildTime,
		})
	})

	// Static survey UI, when bundled alongside the API.
	if staticDir := os.Getenv("FORMPULSE_STATIC_DIR"); staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}

	handler := middleware.SecureHeaders(middleware.NoStore(middleware.CORS(middleware.WithAuth(mux))))

	log.Printf("FormPulse server listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// openSnapshot picks the persistence provider: sqlite when FORMPULSE_SQLITE
// is set, a JSON file otherwise.
func openSnapshot() (store.Snapshot, error) {
	if dsn := os.Getenv("FORMPULSE_SQLITE"); dsn != "" {
		conn, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, err
		}
		return db.NewSQLiteSnapshot(conn, utils.SafeEnv("FORMPULSE_SNAPSHOT_NAME", "formpulse"))
	}
	return store.NewFileSnapshot(utils.SafeEnv("FORMPULSE_SNAPSHOT", "formpulse.json")), nil
}
