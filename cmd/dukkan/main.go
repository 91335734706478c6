// Command dukkan is a storefront-management client for a webhook backend:
// product CRUD, order confirmation, and image upload for one seller account.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/amehdaoui/dukkan/internal/api"
	"github.com/amehdaoui/dukkan/internal/authbus"
	"github.com/amehdaoui/dukkan/internal/config"
	"github.com/amehdaoui/dukkan/internal/credstore"
	"github.com/amehdaoui/dukkan/internal/errs"
	"github.com/amehdaoui/dukkan/internal/httpx"
	"github.com/amehdaoui/dukkan/internal/imaging"
	"github.com/amehdaoui/dukkan/internal/model"
	"github.com/amehdaoui/dukkan/internal/session"
	"github.com/amehdaoui/dukkan/internal/validate"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func usage() {
	fmt.Fprintf(os.Stderr, `dukkan CLI
Usage:
  dukkan [-config file] [-base-url URL] [-debug] <cmd> [args]

Commands:
  version
  login           -email <email> -password <password>
  logout
  session                                  (show session state)
  products                                 (list products)
  product-add     -name N -desc D -price P [-images a.jpg,b.png]
  product-update  -id ID [-name N] [-desc D] [-price P] [-images ...]
  product-rm      -id ID
  orders                                   (list orders)
  order-status    -id ID -status <pending|confirmed|delivered|cancelled>
  upload          -file <image>
`)
	os.Exit(2)
}

// app bundles everything a subcommand needs.
type app struct {
	cfg     *config.Config
	api     *api.Client
	session *session.Manager
	logger  *zap.Logger
}

func main() {
	cfgPath := flag.String("config", filepath.Join(config.Dir(), "config.yaml"), "config file")
	baseURL := flag.String("base-url", "", "override backend base URL")
	debug := flag.Bool("debug", false, "verbose logging")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)

	var logger *zap.Logger
	if *debug {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fail(fmt.Errorf("load config: %w", err))
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *debug {
		cfg.Debug = true
	}
	if cfg.BaseURL == "" && cmd != "version" {
		fail(errors.New("no backend base URL configured (set baseUrl in config or -base-url)"))
	}

	store := credstore.Open(cfg.DataDir, logger)
	bus := authbus.New(logger)
	bus.Subscribe(func(ev authbus.Event) {
		if ev.Kind == authbus.KindLogout {
			fmt.Fprintln(os.Stderr, "session ended, login required")
		}
	})
	sess := session.New(store, time.Duration(cfg.TokenTTLMinutes)*time.Minute, logger)
	httpClient := httpx.New(cfg.BaseURL, cfg.Timeout, cfg.APIKey, store, bus, logger)
	a := &app{
		cfg:     cfg,
		api:     api.New(cfg, httpClient, store, sess, bus, logger),
		session: sess,
		logger:  logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch cmd {
	case "version":
		fmt.Printf("dukkan %s (%s)\n", version, buildDate)
	case "login":
		a.cmdLogin(ctx, flag.Args()[1:])
	case "logout":
		a.cmdLogout(ctx)
	case "session":
		a.cmdSession(ctx)
	case "products":
		a.cmdProducts(ctx)
	case "product-add":
		a.cmdProductAdd(ctx, flag.Args()[1:])
	case "product-update":
		a.cmdProductUpdate(ctx, flag.Args()[1:])
	case "product-rm":
		a.cmdProductRm(ctx, flag.Args()[1:])
	case "orders":
		a.cmdOrders(ctx)
	case "order-status":
		a.cmdOrderStatus(ctx, flag.Args()[1:])
	case "upload":
		a.cmdUpload(ctx, flag.Args()[1:])
	default:
		usage()
	}
}

// requireSession runs the client-side fast-fail before an authenticated
// command. The backend's 401 remains the real gate.
func (a *app) requireSession(ctx context.Context) {
	v := a.session.ValidateSession(ctx, a.cfg.InactivityTimeout)
	if !v.Valid {
		fail(fmt.Errorf("%s: login again", v.Reason))
	}
}

func (a *app) cmdLogin(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	_ = fs.Parse(args)
	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "need -email and -password")
		os.Exit(1)
	}
	resp, err := a.api.Login(ctx, *email, *password)
	if err != nil {
		fail(err)
	}
	fmt.Printf("logged in as user %s\n", resp.UserID)
}

func (a *app) cmdLogout(ctx context.Context) {
	if err := a.api.Logout(ctx); err != nil {
		fail(err)
	}
	fmt.Println("logged out")
}

func (a *app) cmdSession(ctx context.Context) {
	info, err := a.session.SessionInfo(ctx)
	if err != nil {
		fail(err)
	}
	printJSON(map[string]any{
		"authenticated":    info.Authenticated,
		"user_id":          info.UserID,
		"token_expires_at": timeString(info.TokenExpiresAt),
		"session_start":    timeString(info.SessionStart),
		"expired":          info.Expired,
	})
}

func (a *app) cmdProducts(ctx context.Context) {
	a.requireSession(ctx)
	var products []model.Product
	err := httpx.RetryWithBackoff(ctx, func(ctx context.Context) error {
		var err error
		products, err = a.api.GetProducts(ctx)
		return err
	}, 2, time.Second)
	if err != nil {
		if cached, syncedAt, ok := a.api.CachedProducts(); ok && errs.CategoryOf(err) == errs.CategoryNetwork {
			fmt.Fprintf(os.Stderr, "offline, showing cached products from %s\n", syncedAt)
			printJSON(cached)
			return
		}
		fail(err)
	}
	printJSON(products)
}

func (a *app) cmdProductAdd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("product-add", flag.ExitOnError)
	name := fs.String("name", "", "product name")
	desc := fs.String("desc", "", "product description")
	price := fs.Float64("price", 0, "product price")
	images := fs.String("images", "", "comma-separated image files (max 4)")
	_ = fs.Parse(args)

	a.requireSession(ctx)
	imgs, err := loadImages(*images, a.cfg.MaxImageSize)
	if err != nil {
		fail(err)
	}
	resp, err := a.api.AddProduct(ctx, validate.ProductForm{Name: *name, Description: *desc, Price: *price}, imgs)
	if err != nil {
		fail(err)
	}
	printJSON(resp)
}

func (a *app) cmdProductUpdate(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("product-update", flag.ExitOnError)
	id := fs.Int64("id", 0, "product id")
	name := fs.String("name", "", "product name")
	desc := fs.String("desc", "", "product description")
	price := fs.Float64("price", 0, "product price")
	images := fs.String("images", "", "comma-separated image files (max 4)")
	_ = fs.Parse(args)
	if *id == 0 {
		fmt.Fprintln(os.Stderr, "need -id")
		os.Exit(1)
	}

	a.requireSession(ctx)
	imgs, err := loadImages(*images, a.cfg.MaxImageSize)
	if err != nil {
		fail(err)
	}
	resp, err := a.api.UpdateProduct(ctx, *id, validate.ProductForm{Name: *name, Description: *desc, Price: *price}, imgs)
	if err != nil {
		fail(err)
	}
	printJSON(resp)
}

func (a *app) cmdProductRm(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("product-rm", flag.ExitOnError)
	id := fs.Int64("id", 0, "product id")
	_ = fs.Parse(args)
	if *id == 0 {
		fmt.Fprintln(os.Stderr, "need -id")
		os.Exit(1)
	}

	a.requireSession(ctx)
	resp, err := a.api.DeleteProduct(ctx, *id)
	if err != nil {
		fail(err)
	}
	printJSON(resp)
}

func (a *app) cmdOrders(ctx context.Context) {
	a.requireSession(ctx)
	var orders []model.Order
	err := httpx.RetryWithBackoff(ctx, func(ctx context.Context) error {
		var err error
		orders, err = a.api.GetOrders(ctx)
		return err
	}, 2, time.Second)
	if err != nil {
		fail(err)
	}
	type row struct {
		ID, Product, Phone, Address, Status, CreatedAt string
		Quantity                                       int
	}
	rows := make([]row, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, row{
			ID:        o.ID,
			Product:   o.ProductName,
			Phone:     o.Phone,
			Address:   o.DeliveryAddress,
			Status:    string(o.CanonicalStatus()),
			Quantity:  o.Quantity,
			CreatedAt: o.CreatedAt,
		})
	}
	printJSON(rows)
}

func (a *app) cmdOrderStatus(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("order-status", flag.ExitOnError)
	id := fs.String("id", "", "order id")
	status := fs.String("status", "", "new status")
	_ = fs.Parse(args)
	if *id == "" || *status == "" {
		fmt.Fprintln(os.Stderr, "need -id and -status")
		os.Exit(1)
	}
	st, ok := model.ParseOrderStatus(*status)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown status %q\n", *status)
		os.Exit(1)
	}

	a.requireSession(ctx)
	resp, err := a.api.UpdateOrderStatus(ctx, *id, st)
	if err != nil {
		fail(err)
	}
	printJSON(resp)
}

func (a *app) cmdUpload(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	file := fs.String("file", "", "image file")
	_ = fs.Parse(args)
	if *file == "" {
		fmt.Fprintln(os.Stderr, "need -file")
		os.Exit(1)
	}

	a.requireSession(ctx)
	img, err := imaging.Load(*file, a.cfg.MaxImageSize)
	if err != nil {
		fail(err)
	}
	resp, err := a.api.UploadImage(ctx, img)
	if err != nil {
		fail(err)
	}
	printJSON(resp)
}

// ---- helpers ----

func loadImages(list string, maxSize int64) ([]model.PendingImage, error) {
	if list == "" {
		return nil, nil
	}
	paths := strings.Split(list, ",")
	if len(paths) > imaging.MaxSlots {
		return nil, errs.New(errs.CategoryValidation, fmt.Sprintf("maximum %d images allowed", imaging.MaxSlots))
	}
	imgs := make([]model.PendingImage, 0, len(paths))
	for _, p := range paths {
		img, err := imaging.Load(strings.TrimSpace(p), maxSize)
		if err != nil {
			return nil, err
		}
		imgs = append(imgs, img)
	}
	return imgs, nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func timeString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func fail(err error) {
	var apiErr *errs.APIError
	if errors.As(err, &apiErr) {
		fmt.Fprintf(os.Stderr, "error: %s (%s)\n", apiErr.Message, apiErr.Category)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
