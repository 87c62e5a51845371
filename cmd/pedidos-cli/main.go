// Command pedidos-cli browses the catalog, checks out a cart and manages the
// order history against a running pedidos service.
//
//	pedidos-cli -user 7 -token $TOKEN productos [texto]
//	pedidos-cli -user 7 -token $TOKEN pedir 1:2 2
//	pedidos-cli -user 7 -token $TOKEN historial
//	pedidos-cli -user 7 -token $TOKEN borrar 12
//	pedidos-cli -user 7 token
//
// The token command signs a token for -user with JWT_SECRET, valid for
// TOKEN_TTL, for use against a development server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"pedido-service/client"
	"pedido-service/config"
	"pedido-service/inflight"
	"pedido-service/models"
	"pedido-service/services"
	"pedido-service/utils"
)

func main() {
	cfg := config.LoadConfig()

	userID := flag.Int64("user", 0, "id of the signed-in user")
	token := flag.String("token", os.Getenv("PEDIDOS_TOKEN"), "bearer token of the signed-in user")
	address := flag.String("address", "", "shipping address (defaults to the user's address)")
	store := flag.String("store", cfg.StoreBaseURL, "base url of the pedidos service")
	flag.Parse()
	cfg.StoreBaseURL = *store

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	session := services.NewSession()
	if *userID != 0 {
		session.Login(services.UserData{ID: *userID, Address: *address}, *token)
	}

	remote, err := client.NewFromConfig(cfg, session.Token)
	if err != nil {
		log.Fatalf("Failed to create store client: %v", err)
	}

	app := &cli{
		out:     os.Stdout,
		session: session,
		catalog: services.NewCatalogService(remote),
		store:   remote,
		guard:   newGuard(cfg),
		userID:  *userID,
		secret:  cfg.JWTSecret,
		ttl:     cfg.TokenTTL,
	}
	if err := app.run(ctx, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newGuard shares the in-flight submission lock through Redis when one is
// configured so that two terminals of the same user cannot both check out.
func newGuard(cfg *config.Config) inflight.Guard {
	if cfg.RedisAddr == "" {
		return inflight.NewLocal()
	}
	return inflight.NewRedis(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), cfg.SubmissionTTL)
}

type remoteStore interface {
	services.OrderCreator
	services.OrderHistoryStore
}

type cli struct {
	out     io.Writer
	session *services.Session
	catalog *services.CatalogService
	store   remoteStore
	guard   inflight.Guard

	userID int64
	secret string
	ttl    time.Duration
}

func (a *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: pedidos-cli [flags] productos|pedir|historial|borrar|token")
	}
	switch args[0] {
	case "productos":
		return a.products(ctx, strings.Join(args[1:], " "))
	case "pedir":
		return a.order(ctx, args[1:])
	case "historial":
		return a.history(ctx)
	case "borrar":
		if len(args) != 2 {
			return errors.New("usage: borrar <pedidoId>")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid order id %q", args[1])
		}
		return a.delete(ctx, id)
	case "token":
		return a.issueToken()
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (a *cli) products(ctx context.Context, query string) error {
	products, err := a.catalog.ListProducts(ctx)
	if err != nil {
		return err
	}
	for _, p := range services.FilterProducts(products, query) {
		fmt.Fprintf(a.out, "%3d  %-30s %-12s $%s\n", p.ID, p.Name, p.Brand, p.Price)
	}
	return nil
}

// order fills a cart from "id" or "id:qty" arguments and submits it.
func (a *cli) order(ctx context.Context, items []string) error {
	products, err := a.catalog.ListProducts(ctx)
	if err != nil {
		return err
	}
	byID := make(map[int64]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	cart := services.NewCart()
	for _, item := range items {
		idPart, qtyPart, found := strings.Cut(item, ":")
		id, err := strconv.ParseInt(idPart, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid product %q", item)
		}
		qty := 1
		if found {
			if qty, err = strconv.Atoi(qtyPart); err != nil || qty <= 0 {
				return fmt.Errorf("invalid quantity in %q", item)
			}
		}
		p, ok := byID[id]
		if !ok {
			return fmt.Errorf("product %d not in catalog", id)
		}
		for i := 0; i < qty; i++ {
			cart.Add(p)
		}
	}

	pipeline := services.NewSubmissionPipeline(cart, a.session, a.store, a.guard)
	summary := pipeline.Preview("")
	for _, l := range summary.Lines {
		fmt.Fprintf(a.out, "%3d x %-30s $%s\n", l.Quantity, l.Product.Name, l.Amount)
	}
	fmt.Fprintf(a.out, "Total: $%s\n", summary.FormattedTotal)

	result := <-pipeline.SubmitAsync(ctx, "")
	if result.Err != nil {
		return result.Err
	}
	fmt.Fprintf(a.out, "Pedido %d creado\n", result.Value)
	return nil
}

func (a *cli) history(ctx context.Context) error {
	result := <-services.NewHistoryService(a.store, a.session, nil).RefreshAsync(ctx)
	if result.Err != nil {
		return result.Err
	}
	if len(result.Value) == 0 {
		fmt.Fprintln(a.out, "No tienes pedidos")
		return nil
	}
	for _, e := range result.Value {
		fmt.Fprintf(a.out, "#%-5d %s  $%s\n", e.OrderID, e.Date, e.Total)
	}
	return nil
}

func (a *cli) delete(ctx context.Context, orderID int64) error {
	history := services.NewHistoryService(a.store, a.session, nil)
	history.RequestDeletion(orderID)

	result := <-history.ConfirmDeletionAsync(ctx, orderID)
	if result.Err != nil {
		return result.Err
	}
	fmt.Fprintf(a.out, "Pedido %d eliminado, quedan %d\n", orderID, len(result.Value))
	return nil
}

func (a *cli) issueToken() error {
	if a.userID <= 0 {
		return errors.New("token needs -user")
	}
	token, err := utils.GenerateToken(a.userID, a.secret, a.ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, token)
	return nil
}
