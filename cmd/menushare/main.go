// Команда menushare собирает ссылку на меню из JSON и разбирает ссылки обратно.
//
//	menushare encode -base https://kelnar.example/ < menu.json
//	menushare encode -sqlite kelnar.db [-key products]
//	menushare decode 'https://kelnar.example/#menu/import?data=...'
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vladislavdragonenkov/kelnar/internal/domain"
	"github.com/vladislavdragonenkov/kelnar/internal/menushare"
	"github.com/vladislavdragonenkov/kelnar/internal/storage/sqlite"
)

var errUsage = errors.New("usage: menushare encode [-base URL] < products.json | menushare decode LINK")

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, in io.Reader, out, errOut io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "encode":
		return encode(args[1:], in, out, errOut)
	case "decode":
		return decode(args[1:], in, out, errOut)
	default:
		return errUsage
	}
}

func encode(args []string, in io.Reader, out, errOut io.Writer) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	fs.SetOutput(errOut)
	base := fs.String("base", "http://localhost:8080/", "base URL of the web client")
	raw := fs.Bool("raw", false, "print the menu string without the link")
	dbPath := fs.String("sqlite", "", "read the menu from a kelnar sqlite database instead of stdin")
	key := fs.String("key", domain.ProductsKey, "key of the menu in the sqlite database")
	if err := fs.Parse(args); err != nil {
		return err
	}

	source := in
	if *dbPath != "" {
		stored, err := readStoredMenu(context.Background(), *dbPath, *key)
		if err != nil {
			return err
		}
		source = strings.NewReader(stored)
	}

	var products []domain.Product
	if err := json.NewDecoder(source).Decode(&products); err != nil {
		return fmt.Errorf("read products: %w", err)
	}
	for _, name := range menushare.UnsafeProducts(products) {
		_, _ = fmt.Fprintf(errOut, "warning: %q contains link separators and will not round-trip\n", name)
	}

	if *raw {
		_, err := fmt.Fprintln(out, menushare.Encode(products))
		return err
	}
	_, err := fmt.Fprintln(out, menushare.BuildShareURL(*base, products))
	return err
}

// readStoredMenu достаёт JSON меню из sqlite-хранилища сервиса.
func readStoredMenu(ctx context.Context, path, key string) (string, error) {
	store, err := sqlite.Open(ctx, path)
	if err != nil {
		return "", err
	}
	defer store.Close()

	value, ok, err := store.GetString(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		keys, err := store.Keys(ctx)
		if err != nil {
			return "", err
		}
		return "", fmt.Errorf("key %q not found in %s (stored keys: %s)", key, path, strings.Join(keys, ", "))
	}
	return value, nil
}

// decode печатает разобранные позиции в JSON; пропущенные записи уходят в errOut.
func decode(args []string, in io.Reader, out, errOut io.Writer) error {
	link := strings.Join(args, " ")
	if strings.TrimSpace(link) == "" {
		data, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("read link: %w", err)
		}
		link = string(data)
	}

	state, err := menushare.ParseShareURL(link)
	if err != nil {
		return err
	}
	for _, label := range state.SkippedLabels() {
		_, _ = fmt.Fprintf(errOut, "skipped: %s\n", label)
	}
	if !state.Visible {
		return errors.New("link contains no valid menu items")
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(state.Items)
}
