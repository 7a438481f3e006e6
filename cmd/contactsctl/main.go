package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sonroyaalmerol/webmail-contacts/internal/app"
	"github.com/sonroyaalmerol/webmail-contacts/internal/config"
	"github.com/sonroyaalmerol/webmail-contacts/internal/logging"
	"github.com/sonroyaalmerol/webmail-contacts/internal/manager"
	"github.com/sonroyaalmerol/webmail-contacts/internal/transfer"
)

const usage = `usage: contactsctl <command> [flags]

commands:
  import      -user <id> -tenant <id> -format csv|vcf -storage <id> -file <path>
  export      -user <id> -tenant <id> -format csv|vcf -storage <id> [-file <path>] [-uuids a,b]
  ctag        -user <id> -tenant <id> -storage <id>
  suggest     -user <id> -tenant <id> -q <text> [-limit n]
  collect     -user <id> -tenant <id> <address>...
  addressbook -user <id> list|create <name>|rename <id> <name>|delete <id>`

type command struct {
	fs      *flag.FlagSet
	user    int64
	tenant  int64
	format  string
	storage string
	file    string
	uuids   string
	query   string
	limit   int
}

func newCommand(name string) *command {
	c := &command{fs: flag.NewFlagSet(name, flag.ExitOnError)}
	c.fs.Int64Var(&c.user, "user", 0, "User ID (required)")
	c.fs.Int64Var(&c.tenant, "tenant", 0, "Tenant ID")
	c.fs.StringVar(&c.format, "format", "vcf", "File format: csv or vcf")
	c.fs.StringVar(&c.storage, "storage", "personal", "Storage: personal, collected, shared, team, all or addressbook<N>")
	c.fs.StringVar(&c.file, "file", "", "Input or output file")
	c.fs.StringVar(&c.uuids, "uuids", "", "Comma separated contact UUIDs (export)")
	c.fs.StringVar(&c.query, "q", "", "Search text (suggest)")
	c.fs.IntVar(&c.limit, "limit", 0, "Maximum number of suggestions")
	return c
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	cmd := newCommand(os.Args[1])
	_ = cmd.fs.Parse(os.Args[2:])
	if cmd.user == 0 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fail("config: %v", err)
	}
	logger := logging.New(cfg.LogLevel)
	logger = logger.With().Str("component", "contactsctl").Logger()

	m, cleanup, err := app.New(cfg, logger)
	if err != nil {
		fail("init: %v", err)
	}
	defer cleanup()

	ctx := context.Background()
	u := manager.User{ID: cmd.user, TenantID: cmd.tenant}
	if err := cmd.run(ctx, m, u); err != nil {
		logger.Error().Err(err).Str("command", cmd.fs.Name()).Msg("command failed")
		cleanup()
		os.Exit(1)
	}
}

func (c *command) run(ctx context.Context, m *manager.Manager, u manager.User) error {
	switch c.fs.Name() {
	case "import":
		return c.importFile(ctx, m, u)
	case "export":
		return c.exportFile(ctx, m, u)
	case "ctag":
		v, err := m.GetCTag(ctx, u, c.storage)
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	case "suggest":
		list, err := m.Suggest(ctx, u, c.query, c.limit)
		if err != nil {
			return err
		}
		for _, ct := range list {
			fmt.Printf("%s\t%s\t%d\n", ct.DisplayName(), ct.ViewEmail, ct.Frequency)
		}
		return nil
	case "collect":
		n, err := m.CollectEmails(ctx, u, c.fs.Args())
		if err != nil {
			return err
		}
		fmt.Printf("collected %d addresses\n", n)
		return nil
	case "addressbook":
		return c.addressBook(ctx, m, u)
	}
	return fmt.Errorf("unknown command %q", c.fs.Name())
}

func (c *command) importFile(ctx context.Context, m *manager.Manager, u manager.User) error {
	format, err := transfer.ParseFormat(c.format)
	if err != nil {
		return err
	}
	f, err := os.Open(c.file)
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := m.Import(ctx, u, format, c.storage, f)
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(res)
}

func (c *command) exportFile(ctx context.Context, m *manager.Manager, u manager.User) error {
	format, err := transfer.ParseFormat(c.format)
	if err != nil {
		return err
	}
	var uuids []string
	if c.uuids != "" {
		uuids = strings.Split(c.uuids, ",")
	}
	out := os.Stdout
	if c.file != "" {
		f, err := os.Create(c.file)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	n, err := m.Export(ctx, u, format, c.storage, uuids, out)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "exported %d contacts\n", n)
	return nil
}

func (c *command) addressBook(ctx context.Context, m *manager.Manager, u manager.User) error {
	args := c.fs.Args()
	if len(args) == 0 {
		args = []string{"list"}
	}
	parseID := func(i int) (int64, error) {
		if len(args) <= i {
			return 0, fmt.Errorf("missing address book id")
		}
		return strconv.ParseInt(args[i], 10, 64)
	}

	switch args[0] {
	case "list":
		books, err := m.GetAddressBooks(ctx, u)
		if err != nil {
			return err
		}
		for _, ab := range books {
			fmt.Printf("%s\t%s\n", ab.Storage(), ab.Name)
		}
		return nil
	case "create":
		ab, err := m.CreateAddressBook(ctx, u, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Println(ab.Storage())
		return nil
	case "rename":
		id, err := parseID(1)
		if err != nil {
			return err
		}
		return m.RenameAddressBook(ctx, u, id, strings.Join(args[2:], " "))
	case "delete":
		id, err := parseID(1)
		if err != nil {
			return err
		}
		return m.DeleteAddressBook(ctx, u, id)
	}
	return fmt.Errorf("unknown addressbook action %q", args[0])
}
