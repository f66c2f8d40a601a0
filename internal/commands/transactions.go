package commands

import (
	"context"
	"flag"
	"fmt"
	"strconv"

	"cashbook/internal/core"
	"cashbook/internal/live"

	"github.com/google/subcommands"
)

type addTxCmd struct {
	env       *Env
	account   int64
	direction string
	amount    string
	desc      string
	at        string
	legacy    string
}

func (*addTxCmd) Name() string     { return "add-tx" }
func (*addTxCmd) Synopsis() string { return "record a transaction" }
func (*addTxCmd) Usage() string {
	return `cashbook add-tx -dir credit|debit -amount <amount> [-account <id>] [-desc <text>] [-at <date>] [-legacy CASH|BANK]

  Records money in (credit) or out (debit) of an account. The time defaults
  to now and the legacy kind to the one implied by the account kind.
`
}

func (c *addTxCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.account, "account", 1, "Account id.")
	f.StringVar(&c.direction, "dir", "", "Direction: credit or debit.")
	f.StringVar(&c.amount, "amount", "", "Amount, without sign.")
	f.StringVar(&c.desc, "desc", "", "Description.")
	f.StringVar(&c.at, "at", "", "When it happened (YYYY-MM-DD [HH:MM]).")
	f.StringVar(&c.legacy, "legacy", "", "Legacy classification.")
}

func (c *addTxCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	direction, err := core.ParseDirection(c.direction)
	if err != nil {
		return c.env.usage(f, "%v", err)
	}
	amount, err := core.ParseAmount(c.amount)
	if err != nil {
		return c.env.usage(f, "amount %q: %v", c.amount, err)
	}
	occurredAt := c.env.Now()
	if c.at != "" {
		if occurredAt, err = parseWhen(c.at, c.env.Location); err != nil {
			return c.env.usage(f, "%v", err)
		}
	}
	account, err := c.env.Ledger.Account(ctx, c.account)
	if err != nil {
		return c.env.fail(err)
	}
	legacy := core.LegacyKindFor(account.Kind)
	if c.legacy != "" {
		if legacy, err = core.ParseLegacyKind(c.legacy); err != nil {
			return c.env.usage(f, "%v", err)
		}
	}

	id, err := c.env.Ledger.AddTransaction(ctx, core.Transaction{
		AccountID:   account.ID,
		Direction:   direction,
		Amount:      amount,
		OccurredAt:  occurredAt,
		Description: c.desc,
		LegacyKind:  legacy,
	})
	if err != nil {
		return c.env.fail(err)
	}
	fmt.Fprintf(c.env.Out, "Recorded transaction %d on %s.\n", id, account.Name)
	return subcommands.ExitSuccess
}

type rmTxCmd struct {
	env *Env
}

func (*rmTxCmd) Name() string     { return "rm-tx" }
func (*rmTxCmd) Synopsis() string { return "delete a transaction" }
func (*rmTxCmd) Usage() string {
	return `cashbook rm-tx <id>
`
}
func (*rmTxCmd) SetFlags(*flag.FlagSet) {}

func (c *rmTxCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, err := idArg(f)
	if err != nil {
		return c.env.usage(f, "%v", err)
	}
	if err := c.env.Ledger.DeleteTransaction(ctx, id); err != nil {
		return c.env.fail(err)
	}
	fmt.Fprintf(c.env.Out, "Deleted transaction %d.\n", id)
	return subcommands.ExitSuccess
}

type txsCmd struct {
	env      *Env
	account  int64
	from     string
	to       string
	n        int
	orphaned bool
	legacy   string
}

func (*txsCmd) Name() string     { return "txs" }
func (*txsCmd) Synopsis() string { return "list transactions, newest first" }
func (*txsCmd) Usage() string {
	return `cashbook txs [-account <id> | -orphaned | -legacy CASH|BANK | -from <date> -to <date>] [-n <count>]
`
}

func (c *txsCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.account, "account", 0, "Only this account.")
	f.StringVar(&c.from, "from", "", "Range start (inclusive).")
	f.StringVar(&c.to, "to", "", "Range end (inclusive). Defaults to now.")
	f.IntVar(&c.n, "n", 0, "Show only the N newest.")
	f.BoolVar(&c.orphaned, "orphaned", false, "Only transactions whose account was deleted.")
	f.StringVar(&c.legacy, "legacy", "", "Only this legacy classification.")
}

func (c *txsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	txs, err := c.list(ctx)
	if err != nil {
		return c.env.fail(err)
	}
	if c.n > 0 && len(txs) > c.n {
		txs = txs[:c.n]
	}

	accounts, err := c.env.Ledger.AccountList(ctx)
	if err != nil {
		return c.env.fail(err)
	}
	names := make(map[int64]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}
	money, err := c.env.money(ctx)
	if err != nil {
		return c.env.fail(err)
	}

	rows := make([][]string, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, []string{
			strconv.FormatInt(t.ID, 10),
			c.env.formatTime(t.OccurredAt),
			names[t.AccountID],
			string(t.Direction),
			money(t.Amount),
			t.Description,
		})
	}
	c.env.printMarkdown(table([]string{"ID", "Date", "Account", "Direction", "Amount", "Description"}, rows))
	return subcommands.ExitSuccess
}

func (c *txsCmd) list(ctx context.Context) ([]core.Transaction, error) {
	l := c.env.Ledger
	switch {
	case c.orphaned:
		return live.Once(l.OrphanedTransactions(ctx))
	case c.account > 0:
		return live.Once(l.TransactionsByAccount(ctx, c.account))
	case c.legacy != "":
		kind, err := core.ParseLegacyKind(c.legacy)
		if err != nil {
			return nil, err
		}
		return live.Once(l.TransactionsByLegacyKind(ctx, kind))
	case c.from != "":
		from, err := parseWhen(c.from, c.env.Location)
		if err != nil {
			return nil, err
		}
		to := c.env.Now()
		if c.to != "" {
			if to, err = parseUntil(c.to, c.env.Location); err != nil {
				return nil, err
			}
		}
		return l.TransactionsBetween(ctx, from, to)
	case c.n > 0:
		return live.Once(l.RecentTransactions(ctx, c.n))
	default:
		return live.Once(l.Transactions(ctx))
	}
}

type balanceCmd struct {
	env     *Env
	account int64
	legacy  string
}

func (*balanceCmd) Name() string     { return "balance" }
func (*balanceCmd) Synopsis() string { return "show the total or one account's balance" }
func (*balanceCmd) Usage() string {
	return `cashbook balance [-account <id> | -legacy CASH|BANK]

  Without flags prints the balance over every transaction, including those
  of deleted accounts.
`
}

func (c *balanceCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.account, "account", 0, "Account id.")
	f.StringVar(&c.legacy, "legacy", "", "Legacy classification.")
}

func (c *balanceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	money, err := c.env.money(ctx)
	if err != nil {
		return c.env.fail(err)
	}
	l := c.env.Ledger

	switch {
	case c.account > 0:
		totals, err := live.Once(l.AccountTotals(ctx, c.account))
		if err != nil {
			return c.env.fail(err)
		}
		fmt.Fprintf(c.env.Out, "Credit:  %s\nDebit:   %s\nBalance: %s\n",
			money(totals.Credit), money(totals.Debit), money(totals.Balance()))
	case c.legacy != "":
		kind, err := core.ParseLegacyKind(c.legacy)
		if err != nil {
			return c.env.usage(f, "%v", err)
		}
		balance, err := live.Once(l.LegacyBalance(ctx, kind))
		if err != nil {
			return c.env.fail(err)
		}
		fmt.Fprintf(c.env.Out, "Balance (%s): %s\n", kind, money(balance))
	default:
		total, err := live.Once(l.TotalBalance(ctx))
		if err != nil {
			return c.env.fail(err)
		}
		fmt.Fprintf(c.env.Out, "Balance: %s\n", money(total))
	}
	return subcommands.ExitSuccess
}
