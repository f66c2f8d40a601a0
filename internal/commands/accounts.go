package commands

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"cashbook/internal/core"
	"cashbook/internal/live"

	"github.com/google/subcommands"
)

func parseKind(s string) (core.AccountKind, error) {
	return core.ParseAccountKind(strings.ReplaceAll(s, " ", ""))
}

// idArg reads the single positional id argument.
func idArg(f *flag.FlagSet) (int64, error) {
	if f.NArg() != 1 {
		return 0, fmt.Errorf("expected exactly one id argument, got %d", f.NArg())
	}
	id, err := strconv.ParseInt(f.Arg(0), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", f.Arg(0))
	}
	return id, nil
}

type accountsCmd struct {
	env *Env
}

func (*accountsCmd) Name() string     { return "accounts" }
func (*accountsCmd) Synopsis() string { return "list accounts with their balances" }
func (*accountsCmd) Usage() string {
	return `cashbook accounts

  Lists every account with its total credit, total debit and balance.
`
}
func (*accountsCmd) SetFlags(*flag.FlagSet) {}

func (c *accountsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	stats, err := live.Once(c.env.Ledger.AccountsWithStats(ctx))
	if err != nil {
		return c.env.fail(err)
	}
	money, err := c.env.money(ctx)
	if err != nil {
		return c.env.fail(err)
	}

	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			s.Name,
			string(s.Kind),
			money(s.TotalCredit),
			money(s.TotalDebit),
			money(s.Balance()),
		})
	}
	c.env.printMarkdown(table([]string{"ID", "Name", "Kind", "Credit", "Debit", "Balance"}, rows))
	return subcommands.ExitSuccess
}

type addAccountCmd struct {
	env  *Env
	name string
	kind string
}

func (*addAccountCmd) Name() string     { return "add-account" }
func (*addAccountCmd) Synopsis() string { return "create an account" }
func (*addAccountCmd) Usage() string {
	return `cashbook add-account -name <name> [-kind Cash|Bank|Savings|CreditCard|Other]
`
}

func (c *addAccountCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Account name.")
	f.StringVar(&c.kind, "kind", string(core.AccountOther), "Account kind.")
}

func (c *addAccountCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	kind, err := parseKind(c.kind)
	if err != nil {
		return c.env.usage(f, "%v", err)
	}
	id, err := c.env.Ledger.AddAccount(ctx, core.Account{Name: c.name, Kind: kind})
	if err != nil {
		return c.env.fail(err)
	}
	fmt.Fprintf(c.env.Out, "Created account %d.\n", id)
	return subcommands.ExitSuccess
}

type editAccountCmd struct {
	env  *Env
	name string
	kind string
}

func (*editAccountCmd) Name() string     { return "edit-account" }
func (*editAccountCmd) Synopsis() string { return "rename an account or change its kind" }
func (*editAccountCmd) Usage() string {
	return `cashbook edit-account [-name <name>] [-kind <kind>] <id>

  Unset flags keep the current value.
`
}

func (c *editAccountCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "New account name.")
	f.StringVar(&c.kind, "kind", "", "New account kind.")
}

func (c *editAccountCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, err := idArg(f)
	if err != nil {
		return c.env.usage(f, "%v", err)
	}
	a, err := c.env.Ledger.Account(ctx, id)
	if err != nil {
		return c.env.fail(err)
	}
	if c.name != "" {
		a.Name = c.name
	}
	if c.kind != "" {
		if a.Kind, err = parseKind(c.kind); err != nil {
			return c.env.usage(f, "%v", err)
		}
	}
	if err := c.env.Ledger.UpdateAccount(ctx, a); err != nil {
		return c.env.fail(err)
	}
	fmt.Fprintf(c.env.Out, "Updated account %d.\n", id)
	return subcommands.ExitSuccess
}

type rmAccountCmd struct {
	env *Env
}

func (*rmAccountCmd) Name() string     { return "rm-account" }
func (*rmAccountCmd) Synopsis() string { return "delete an account, keeping its transactions" }
func (*rmAccountCmd) Usage() string {
	return `cashbook rm-account <id>

  The account's transactions are kept and still count in the total balance.
`
}
func (*rmAccountCmd) SetFlags(*flag.FlagSet) {}

func (c *rmAccountCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, err := idArg(f)
	if err != nil {
		return c.env.usage(f, "%v", err)
	}
	if err := c.env.Ledger.DeleteAccount(ctx, id); err != nil {
		return c.env.fail(err)
	}
	fmt.Fprintf(c.env.Out, "Deleted account %d.\n", id)
	return subcommands.ExitSuccess
}
