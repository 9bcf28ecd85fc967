package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ganot/atelier/internal/config"
	"github.com/ganot/atelier/internal/domain/cart"
	"github.com/ganot/atelier/internal/domain/viewed"
	"github.com/ganot/atelier/internal/storefront"
	"github.com/ganot/atelier/internal/view"
	"github.com/urfave/cli/v2"
)

type sessionKey struct{}

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "atelier: %v\n", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "atelier",
		Usage:     "storefront session: recently viewed products and cart",
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "variants", Usage: "keep one cart line per color and size"},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: parseLogLevel(cfg.Log.Level),
			}))
			opts := storefront.Options{}
			if c.Bool("variants") {
				opts.CartKey = cart.KeyByVariant
			}
			s, err := storefront.Open(cfg, opts, logger)
			if err != nil {
				return err
			}
			c.Context = context.WithValue(c.Context, sessionKey{}, s)
			return nil
		},
		After: func(c *cli.Context) error {
			if s := session(c); s != nil {
				return s.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			viewCommand(),
			recentCommand(),
			{
				Name:  "clear-recent",
				Usage: "forget the local recently viewed history",
				Action: func(c *cli.Context) error {
					session(c).Tracker.Clear(c.Context)
					return nil
				},
			},
			{
				Name:      "login",
				Usage:     "store the mirror credential",
				ArgsUsage: "<token>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("login needs exactly one token", 2)
					}
					return session(c).Login(c.Context, c.Args().First())
				},
			},
			{
				Name:  "logout",
				Usage: "drop the mirror credential; local history stays",
				Action: func(c *cli.Context) error {
					return session(c).Logout(c.Context)
				},
			},
			cartCommand(),
			watchCommand(),
		},
	}
}

func session(c *cli.Context) *storefront.Session {
	s, _ := c.Context.Value(sessionKey{}).(*storefront.Session)
	return s
}

func viewCommand() *cli.Command {
	return &cli.Command{
		Name:  "view",
		Usage: "record that a product page was shown",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Required: true},
			&cli.StringFlag{Name: "name"},
			&cli.Float64Flag{Name: "price"},
			&cli.StringFlag{Name: "image"},
			&cli.StringFlag{Name: "link"},
		},
		Action: func(c *cli.Context) error {
			pv := viewed.ProductView{
				ID:    viewed.ItemID(c.String("id")),
				Name:  c.String("name"),
				Image: c.String("image"),
				Link:  c.String("link"),
			}
			if c.IsSet("price") {
				price := c.Float64("price")
				pv.Price = &price
			}
			if _, ok := pv.Item(); !ok {
				fmt.Fprintln(c.App.ErrWriter, "incomplete product view ignored")
				return nil
			}
			session(c).View(c.Context, pv)
			return nil
		},
	}
}

func recentCommand() *cli.Command {
	return &cli.Command{
		Name:  "recent",
		Usage: "show recently viewed products",
		Action: func(c *cli.Context) error {
			res := session(c).Tracker.Recent(c.Context)
			return view.RenderRecent(c.App.Writer, view.RecentSnapshot{
				State:  res.State,
				Source: res.Source,
				Items:  res.Items,
			})
		},
	}
}

func cartCommand() *cli.Command {
	show := func(c *cli.Context) error {
		return view.RenderCart(c.App.Writer, session(c).Cart.Snapshot(c.Context))
	}
	return &cli.Command{
		Name:  "cart",
		Usage: "manage the shopping cart",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "add a product",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
					&cli.StringFlag{Name: "name", Required: true},
					&cli.Float64Flag{Name: "price", Required: true},
					&cli.StringFlag{Name: "image"},
					&cli.StringFlag{Name: "color"},
					&cli.StringFlag{Name: "size"},
					&cli.IntFlag{Name: "qty", Value: 1},
				},
				Action: func(c *cli.Context) error {
					added := session(c).Cart.Add(c.Context, cart.Product{
						ID:    c.String("id"),
						Name:  c.String("name"),
						Price: c.Float64("price"),
						Image: c.String("image"),
					}, cart.AddOptions{
						Quantity: c.Int("qty"),
						Color:    c.String("color"),
						Size:     c.String("size"),
					})
					if !added {
						return cli.Exit("product rejected", 1)
					}
					return show(c)
				},
			},
			{
				Name:      "remove",
				Usage:     "remove a line",
				ArgsUsage: "<key>",
				Action: func(c *cli.Context) error {
					if !session(c).Cart.Remove(c.Context, c.Args().First()) {
						return cli.Exit("no such line", 1)
					}
					return show(c)
				},
			},
			{
				Name:      "set",
				Usage:     "set a line quantity; zero or less removes it",
				ArgsUsage: "<key> <quantity>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return cli.Exit("set needs a key and a quantity", 2)
					}
					n, err := strconv.Atoi(c.Args().Get(1))
					if err != nil {
						return fmt.Errorf("parse quantity: %w", err)
					}
					if !session(c).Cart.SetQuantity(c.Context, c.Args().First(), n) {
						return cli.Exit("no such line", 1)
					}
					return show(c)
				},
			},
			{
				Name:  "clear",
				Usage: "empty the cart",
				Action: func(c *cli.Context) error {
					session(c).Cart.Clear(c.Context)
					return nil
				},
			},
			{
				Name:   "show",
				Usage:  "print the cart",
				Action: show,
			},
			{
				Name:  "checkout",
				Usage: "print and empty the cart",
				Action: func(c *cli.Context) error {
					lines := session(c).Cart.Checkout(c.Context)
					if len(lines) == 0 {
						return cli.Exit("cart is empty", 1)
					}
					var total float64
					for _, l := range lines {
						total += l.Total()
					}
					fmt.Fprintf(c.App.Writer, "checked out %d lines, %.2f\n", len(lines), total)
					return nil
				},
			},
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "follow recently viewed and cart changes until interrupted",
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			s := session(c)
			w := c.App.Writer
			recent := view.MountRecentlyViewed(ctx, s.Tracker, s.Bus, view.OnRecentChange(func(snap view.RecentSnapshot) {
				if err := view.RenderRecent(w, snap); err != nil {
					slog.Default().Warn("render failed", "error", err)
				}
			}))
			defer recent.Close()

			summary := view.MountCartSummary(ctx, s.Cart, s.Bus, func(snap cart.Snapshot) {
				fmt.Fprintf(w, "cart: %d items, %.2f\n", snap.TotalItems, snap.TotalPrice)
			})
			defer summary.Close()

			if err := s.StartRelay(ctx); err != nil && !errors.Is(err, storefront.ErrNoRemote) {
				return err
			}
			<-ctx.Done()
			return nil
		},
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
