package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/octacordshop/PrimeStream/internal/grpcserver"
	"github.com/octacordshop/PrimeStream/pkg/grpc/syncpb"
	"github.com/octacordshop/PrimeStream/pkg/models"
)

const (
	defaultBaseURL  = "http://localhost:8080"
	defaultGRPCAddr = "localhost:9090"
)

type tokenData struct {
	Token string `json:"token"`
}

type authResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

type catalogListResponse struct {
	Total  int                  `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
	Items  []models.CatalogItem `json:"items"`
}

func main() {
	global := flag.NewFlagSet("primestream", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	grpcAddr := global.String("grpc", defaultGRPCAddr, "gRPC sync service address")
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := args[0]
	sub := ""
	rest := []string{}
	if len(args) > 1 {
		sub = args[1]
		rest = args[2:]
	}

	// syncs can take minutes on a cold cache
	client := &http.Client{Timeout: 10 * time.Minute}

	switch cmd {
	case "auth":
		handleAuth(ctx, client, *baseURL, *tokenPath, sub, rest)
	case "catalog":
		handleCatalog(ctx, client, *baseURL, sub, rest)
	case "sync":
		handleSync(ctx, client, *baseURL, *tokenPath, sub, rest)
	case "import":
		handleImport(ctx, client, *baseURL, *tokenPath, sub, rest)
	case "curate":
		handleCurate(ctx, client, *baseURL, *tokenPath, append([]string{sub}, rest...))
	case "cache":
		handleCache(ctx, client, *baseURL, *tokenPath, sub, rest)
	case "events":
		handleEvents(*baseURL, sub, rest)
	case "grpc":
		handleGRPC(ctx, *grpcAddr, *tokenPath, sub, rest)
	case "export":
		handleExport(ctx, client, *baseURL, sub, rest)
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ExitOnError)
		login := fs.String("login", "", "username or email")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *login == "" || *password == "" {
			log.Fatal("login and password are required")
		}

		payload := map[string]string{"login": *login, "password": *password}
		var resp authResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/login", "", payload, &resp); err != nil {
			log.Fatalf("login failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Printf("logged in (token expires %s)\n", resp.ExpiresAt)
	case "me":
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/auth/me", mustToken(tokenPath), nil, &resp); err != nil {
			log.Fatalf("me failed: %v", err)
		}
		printJSON(resp)
	case "passwd":
		fs := flag.NewFlagSet("auth passwd", flag.ExitOnError)
		oldPass := fs.String("old", "", "current password")
		newPass := fs.String("new", "", "new password")
		_ = fs.Parse(args)
		if *oldPass == "" || *newPass == "" {
			log.Fatal("old and new passwords are required")
		}

		payload := map[string]string{"old_password": *oldPass, "new_password": *newPass}
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/change-password", mustToken(tokenPath), payload, nil); err != nil {
			log.Fatalf("change password failed: %v", err)
		}
		_ = clearToken(tokenPath)
		fmt.Println("password changed; log in again")
	case "logout":
		if token, err := readToken(tokenPath); err == nil && token != "" {
			if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/logout", token, nil, nil); err != nil {
				log.Printf("server logout failed: %v", err)
			}
		}
		if err := clearToken(tokenPath); err != nil {
			log.Fatalf("logout failed: %v", err)
		}
		fmt.Println("logged out")
	default:
		log.Fatal("usage: primestream auth <login|me|passwd|logout>")
	}
}

func handleCatalog(ctx context.Context, client *http.Client, baseURL, sub string, args []string) {
	switch sub {
	case "search":
		fs := flag.NewFlagSet("catalog search", flag.ExitOnError)
		query := fs.String("q", "", "title search")
		kind := fs.String("kind", "", "movie or tv")
		genres := fs.String("genres", "", "comma-separated genres")
		featured := fs.Bool("featured", false, "featured titles only")
		limit := fs.Int("limit", 20, "page size")
		offset := fs.Int("offset", 0, "offset")
		_ = fs.Parse(args)

		u, err := url.Parse(baseURL + "/catalog")
		if err != nil {
			log.Fatalf("invalid base url: %v", err)
		}
		qv := u.Query()
		if *query != "" {
			qv.Set("q", *query)
		}
		if *kind != "" {
			qv.Set("kind", *kind)
		}
		if *genres != "" {
			qv.Set("genres", *genres)
		}
		if *featured {
			qv.Set("featured", "true")
		}
		qv.Set("limit", strconv.Itoa(*limit))
		qv.Set("offset", strconv.Itoa(*offset))
		u.RawQuery = qv.Encode()

		var resp catalogListResponse
		if err := doJSON(ctx, client, http.MethodGet, u.String(), "", nil, &resp); err != nil {
			log.Fatalf("search failed: %v", err)
		}
		for _, it := range resp.Items {
			star := " "
			if it.IsFeatured {
				star = "*"
			}
			fmt.Printf("%s %6d  %-5s %-10s %-9s %4.1f  %s\n", star, it.ID, it.Kind, it.ExternalID, it.Year, it.Rating, it.Title)
		}
		fmt.Printf("%d of %d\n", len(resp.Items), resp.Total)
	case "show":
		fs := flag.NewFlagSet("catalog show", flag.ExitOnError)
		id := fs.Int64("id", 0, "catalog id")
		_ = fs.Parse(args)
		if *id <= 0 {
			log.Fatal("id is required")
		}

		var resp models.CatalogItem
		if err := doJSON(ctx, client, http.MethodGet, fmt.Sprintf("%s/catalog/%d", baseURL, *id), "", nil, &resp); err != nil {
			log.Fatalf("show failed: %v", err)
		}
		printJSON(resp)
	case "episodes":
		fs := flag.NewFlagSet("catalog episodes", flag.ExitOnError)
		id := fs.Int64("id", 0, "series id")
		season := fs.Int("season", 0, "season (0 = all)")
		_ = fs.Parse(args)
		if *id <= 0 {
			log.Fatal("id is required")
		}

		var resp struct {
			Episodes []models.Episode `json:"episodes"`
		}
		endpoint := fmt.Sprintf("%s/catalog/%d/episodes?season=%d", baseURL, *id, *season)
		if err := doJSON(ctx, client, http.MethodGet, endpoint, "", nil, &resp); err != nil {
			log.Fatalf("episodes failed: %v", err)
		}
		for _, e := range resp.Episodes {
			fmt.Printf("S%02dE%02d  %-10s %s\n", e.Season, e.EpisodeNumber, e.AirDate, e.Title)
		}
	default:
		log.Fatal("usage: primestream catalog <search|show|episodes>")
	}
}

func handleSync(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	token := mustToken(tokenPath)
	switch sub {
	case "popular":
		fs := flag.NewFlagSet("sync popular", flag.ExitOnError)
		kind := fs.String("kind", "movie", "movie or tv")
		page := fs.Int("page", 1, "listing page")
		_ = fs.Parse(args)

		var resp map[string]any
		payload := map[string]any{"kind": *kind, "page": *page}
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/admin/sync/popular", token, payload, &resp); err != nil {
			log.Fatalf("sync failed: %v", err)
		}
		printJSON(resp)
	case "year":
		fs := flag.NewFlagSet("sync year", flag.ExitOnError)
		kind := fs.String("kind", "movie", "movie or tv")
		year := fs.Int("year", 0, "release year")
		page := fs.Int("page", 1, "listing page")
		_ = fs.Parse(args)

		var resp map[string]any
		payload := map[string]any{"kind": *kind, "year": *year, "page": *page}
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/admin/sync/year", token, payload, &resp); err != nil {
			log.Fatalf("sync failed: %v", err)
		}
		printJSON(resp)
	case "refresh":
		fs := flag.NewFlagSet("sync refresh", flag.ExitOnError)
		pages := fs.Int("pages", 1, "popular pages per kind")
		_ = fs.Parse(args)

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/admin/refresh", token, map[string]any{"pages": *pages}, &resp); err != nil {
			log.Fatalf("refresh failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: primestream sync <popular|year|refresh>")
	}
}

func handleImport(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	token := mustToken(tokenPath)
	switch sub {
	case "start":
		fs := flag.NewFlagSet("import start", flag.ExitOnError)
		kind := fs.String("kind", "movie", "movie or tv")
		start := fs.Int("start", 0, "first year")
		end := fs.Int("end", 0, "last year (inclusive)")
		confirm := fs.Bool("confirm", false, "allow ranges longer than 5 years")
		wait := fs.Bool("wait", false, "poll until the run finishes")
		_ = fs.Parse(args)

		payload := map[string]any{"kind": *kind, "start_year": *start, "end_year": *end, "confirm": *confirm}
		var resp struct {
			RunID string `json:"run_id"`
		}
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/admin/imports", token, payload, &resp); err != nil {
			log.Fatalf("import failed: %v", err)
		}
		fmt.Printf("import started: %s\n", resp.RunID)
		if *wait {
			waitForRun(ctx, client, baseURL, token, resp.RunID)
		}
	case "status":
		fs := flag.NewFlagSet("import status", flag.ExitOnError)
		id := fs.String("id", "", "run id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("id is required")
		}

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/admin/imports/"+url.PathEscape(*id), token, nil, &resp); err != nil {
			log.Fatalf("status failed: %v", err)
		}
		printJSON(resp)
	case "list":
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/admin/imports", token, nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: primestream import <start|status|list>")
	}
}

type runStatus struct {
	YearsDone      int    `json:"years_done"`
	TotalYears     int    `json:"total_years"`
	CurrentYear    int    `json:"current_year"`
	ProcessedCount int    `json:"processed_count"`
	ErrorCount     int    `json:"error_count"`
	IsRunning      bool   `json:"is_running"`
	LastError      string `json:"last_error"`
}

func waitForRun(ctx context.Context, client *http.Client, baseURL, token, id string) {
	last := -1
	for {
		var st runStatus
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/admin/imports/"+url.PathEscape(id), token, nil, &st); err != nil {
			log.Fatalf("status failed: %v", err)
		}
		if st.YearsDone != last {
			fmt.Printf("[%d/%d] year=%d added=%d failed_years=%d\n", st.YearsDone, st.TotalYears, st.CurrentYear, st.ProcessedCount, st.ErrorCount)
			last = st.YearsDone
		}
		if !st.IsRunning {
			if st.LastError != "" {
				fmt.Printf("finished with error: %s\n", st.LastError)
			}
			return
		}
		time.Sleep(2 * time.Second)
	}
}

func handleCurate(ctx context.Context, client *http.Client, baseURL, tokenPath string, args []string) {
	fs := flag.NewFlagSet("curate", flag.ExitOnError)
	id := fs.Int64("id", 0, "catalog id")
	featured := fs.String("featured", "", "true or false")
	visible := fs.String("visible", "", "true or false")
	_ = fs.Parse(args)
	if *id <= 0 {
		log.Fatal("usage: primestream curate -id N [-featured true|false] [-visible true|false]")
	}

	payload := map[string]any{}
	for key, raw := range map[string]string{"is_featured": *featured, "is_visible": *visible} {
		if raw == "" {
			continue
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			log.Fatalf("%s: %v", key, err)
		}
		payload[key] = b
	}

	var resp models.CatalogItem
	endpoint := fmt.Sprintf("%s/admin/catalog/%d", baseURL, *id)
	if err := doJSON(ctx, client, http.MethodPatch, endpoint, mustToken(tokenPath), payload, &resp); err != nil {
		log.Fatalf("curate failed: %v", err)
	}
	fmt.Printf("%d %q featured=%t visible=%t\n", resp.ID, resp.Title, resp.IsFeatured, resp.IsVisible)
}

func handleCache(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "prune":
		fs := flag.NewFlagSet("cache prune", flag.ExitOnError)
		olderThan := fs.String("older-than", "", "age cutoff, e.g. 72h (default: server cache.max_age)")
		_ = fs.Parse(args)

		var payload any
		if *olderThan != "" {
			payload = map[string]string{"older_than": *olderThan}
		}
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/admin/cache/prune", mustToken(tokenPath), payload, &resp); err != nil {
			log.Fatalf("prune failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: primestream cache prune")
	}
}

func handleEvents(baseURL, sub string, args []string) {
	switch sub {
	case "ws":
		fs := flag.NewFlagSet("events ws", flag.ExitOnError)
		wsURL := fs.String("ws", "", "WebSocket URL (defaults to /ws on API host)")
		_ = fs.Parse(args)

		endpoint := *wsURL
		if endpoint == "" {
			var err error
			endpoint, err = websocketURL(baseURL, "/ws")
			if err != nil {
				log.Fatalf("ws url: %v", err)
			}
		}
		if err := runWebSocket(endpoint); err != nil {
			log.Fatalf("subscribe failed: %v", err)
		}
	case "tcp":
		fs := flag.NewFlagSet("events tcp", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:7070", "TCP progress feed address")
		_ = fs.Parse(args)
		for {
			if err := runTCP(*addr); err != nil {
				log.Printf("[events] disconnected: %v", err)
			}
			time.Sleep(1 * time.Second)
		}
	default:
		log.Fatal("usage: primestream events <ws|tcp>")
	}
}

func runTCP(addr string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[events] connected to %s", addr)
	reader := bufio.NewScanner(conn)
	for reader.Scan() {
		fmt.Println(reader.Text())
	}
	if err := reader.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

func runWebSocket(wsURL string) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("[events] connected to %s", wsURL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Println(strings.TrimSpace(string(msg)))
	}
}

// handleGRPC runs a bulk import over the streaming RPC and prints each
// snapshot as it arrives.
func handleGRPC(ctx context.Context, addr, tokenPath, sub string, args []string) {
	switch sub {
	case "import":
		fs := flag.NewFlagSet("grpc import", flag.ExitOnError)
		kind := fs.String("kind", "movie", "movie or tv")
		start := fs.Int("start", 0, "first year")
		end := fs.Int("end", 0, "last year (inclusive)")
		confirm := fs.Bool("confirm", false, "allow ranges longer than 5 years")
		_ = fs.Parse(args)

		conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			log.Fatalf("grpc dial: %v", err)
		}
		defer conn.Close()

		var opts []grpc.CallOption
		if token, err := readToken(tokenPath); err == nil && token != "" {
			opts = append(opts, grpcserver.BearerToken(token))
		}

		stream, err := syncpb.NewSyncServiceClient(conn).BulkImport(ctx, &syncpb.BulkImportRequest{
			Kind:      *kind,
			StartYear: int32(*start),
			EndYear:   int32(*end),
			Confirm:   *confirm,
		}, opts...)
		if err != nil {
			log.Fatalf("bulk import: %v", err)
		}
		for {
			p, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				log.Fatalf("bulk import: %v", err)
			}
			fmt.Printf("[%d/%d] year=%d added=%d updated=%d unavailable=%d failed_years=%d running=%t\n",
				p.YearsDone, p.TotalYears, p.CurrentYear, p.ProcessedCount, p.UpdatedCount,
				p.UnavailableCount, p.ErrorCount, p.IsRunning)
		}
	default:
		log.Fatal("usage: primestream grpc import")
	}
}

func handleExport(ctx context.Context, client *http.Client, baseURL, sub string, args []string) {
	switch sub {
	case "json":
		fs := flag.NewFlagSet("export json", flag.ExitOnError)
		out := fs.String("out", "data/catalog.json", "output JSON path")
		limit := fs.Int("limit", 500, "max titles to export")
		_ = fs.Parse(args)

		items, err := fetchCatalog(ctx, client, baseURL, *limit)
		if err != nil {
			log.Fatalf("export json failed: %v", err)
		}
		if err := writeJSON(*out, items); err != nil {
			log.Fatalf("write json failed: %v", err)
		}
		log.Printf("exported %d titles to %s", len(items), *out)
	default:
		log.Fatal("usage: primestream export json")
	}
}

func fetchCatalog(ctx context.Context, client *http.Client, baseURL string, limit int) ([]models.CatalogItem, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	var out []models.CatalogItem
	offset := 0
	for len(out) < limit {
		pageSize := 100
		if remaining := limit - len(out); remaining < pageSize {
			pageSize = remaining
		}
		u, err := url.Parse(baseURL + "/catalog")
		if err != nil {
			return nil, err
		}
		qv := u.Query()
		qv.Set("limit", strconv.Itoa(pageSize))
		qv.Set("offset", strconv.Itoa(offset))
		u.RawQuery = qv.Encode()

		var resp catalogListResponse
		if err := doJSON(ctx, client, http.MethodGet, u.String(), "", nil, &resp); err != nil {
			return nil, err
		}
		if len(resp.Items) == 0 {
			break
		}
		out = append(out, resp.Items...)
		offset += len(resp.Items)
		if offset >= resp.Total {
			break
		}
	}

	return out, nil
}

func writeJSON(path string, items []models.CatalogItem) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func doJSON(ctx context.Context, client *http.Client, method, endpoint, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed (%d): %s", method, endpoint, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("json: %v", err)
	}
	fmt.Println(string(b))
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.primestream-token.json"
	}
	return filepath.Join(home, ".primestream", "token.json")
}

func saveToken(path, token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tokenData{Token: token}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var td tokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return "", err
	}
	return strings.TrimSpace(td.Token), nil
}

func mustToken(path string) string {
	token, err := readToken(path)
	if err != nil {
		log.Fatalf("token not found, please login: %v", err)
	}
	if token == "" {
		log.Fatal("token empty, please login")
	}
	return token
}

func clearToken(path string) error {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}

func printUsage() {
	fmt.Println("primestream [-api URL] [-grpc ADDR] [-token FILE] <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  auth login|me|passwd|logout")
	fmt.Println("  catalog search|show|episodes")
	fmt.Println("  sync popular|year|refresh")
	fmt.Println("  import start|status|list")
	fmt.Println("  curate -id N [-featured B] [-visible B]")
	fmt.Println("  cache prune")
	fmt.Println("  events ws|tcp")
	fmt.Println("  grpc import")
	fmt.Println("  export json")
}
