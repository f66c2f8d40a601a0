package commands

import (
	"context"
	"flag"
	"fmt"
	"strconv"

	"cashbook/internal/core"
	"cashbook/internal/live"
	"cashbook/internal/reminder"
	"cashbook/internal/services"

	"github.com/google/subcommands"
)

type planCmd struct {
	env    *Env
	kind   string
	amount string
	due    string
	desc   string
	tag    string
}

func (*planCmd) Name() string     { return "plan" }
func (*planCmd) Synopsis() string { return "schedule an upcoming income or payment" }
func (*planCmd) Usage() string {
	return `cashbook plan -kind income|payment -amount <amount> -due <date> [-desc <text>] [-tag CASH|BANK]
`
}

func (c *planCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.kind, "kind", "", "income or payment.")
	f.StringVar(&c.amount, "amount", "", "Amount, without sign.")
	f.StringVar(&c.due, "due", "", "Due date (YYYY-MM-DD [HH:MM]).")
	f.StringVar(&c.desc, "desc", "", "Description.")
	f.StringVar(&c.tag, "tag", string(core.LegacyCash), "Source or destination account tag.")
}

func (c *planCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	kind, err := core.ParsePlannedKind(c.kind)
	if err != nil {
		return c.env.usage(f, "%v", err)
	}
	amount, err := core.ParseAmount(c.amount)
	if err != nil {
		return c.env.usage(f, "amount %q: %v", c.amount, err)
	}
	if c.due == "" {
		return c.env.usage(f, "-due is required")
	}
	due, err := parseWhen(c.due, c.env.Location)
	if err != nil {
		return c.env.usage(f, "%v", err)
	}
	tag, err := core.ParseLegacyKind(c.tag)
	if err != nil {
		return c.env.usage(f, "%v", err)
	}

	id, err := c.env.Ledger.AddPlannedItem(ctx, core.PlannedItem{
		Kind:             kind,
		Amount:           amount,
		DueAt:            due,
		Description:      c.desc,
		SourceAccountTag: tag,
	})
	if err != nil {
		return c.env.fail(err)
	}
	fmt.Fprintf(c.env.Out, "Planned item %d due %s.\n", id, c.env.formatTime(due))
	return subcommands.ExitSuccess
}

type plansCmd struct {
	env  *Env
	kind string
	due  string
}

func (*plansCmd) Name() string     { return "plans" }
func (*plansCmd) Synopsis() string { return "list planned items by due date" }
func (*plansCmd) Usage() string {
	return `cashbook plans [-kind income|payment | -due <date>]

  With -kind or -due only pending items are listed.
`
}

func (c *plansCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.kind, "kind", "", "Only pending items of this kind.")
	f.StringVar(&c.due, "due", "", "Only pending items due at or before this date.")
}

func (c *plansCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var items []core.PlannedItem
	var err error
	switch {
	case c.kind != "":
		kind, perr := core.ParsePlannedKind(c.kind)
		if perr != nil {
			return c.env.usage(f, "%v", perr)
		}
		items, err = live.Once(c.env.Ledger.PlannedByKind(ctx, kind))
	case c.due != "":
		before, perr := parseWhen(c.due, c.env.Location)
		if perr != nil {
			return c.env.usage(f, "%v", perr)
		}
		items, err = live.Once(c.env.Ledger.PlannedDueBefore(ctx, before))
	default:
		items, err = live.Once(c.env.Ledger.PlannedItems(ctx))
	}
	if err != nil {
		return c.env.fail(err)
	}
	money, err := c.env.money(ctx)
	if err != nil {
		return c.env.fail(err)
	}

	rows := make([][]string, 0, len(items))
	for _, p := range items {
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10),
			c.env.formatTime(p.DueAt),
			string(p.Kind),
			money(p.Amount),
			p.Description,
			string(p.Status),
		})
	}
	c.env.printMarkdown(table([]string{"ID", "Due", "Kind", "Amount", "Description", "Status"}, rows))
	return subcommands.ExitSuccess
}

type completeCmd struct {
	env *Env
}

func (*completeCmd) Name() string     { return "complete" }
func (*completeCmd) Synopsis() string { return "mark a planned item as completed" }
func (*completeCmd) Usage() string {
	return `cashbook complete <id>

  No transaction is recorded; use add-tx if money moved.
`
}
func (*completeCmd) SetFlags(*flag.FlagSet) {}

func (c *completeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, err := idArg(f)
	if err != nil {
		return c.env.usage(f, "%v", err)
	}
	if err := c.env.Ledger.MarkPlannedItemCompleted(ctx, id); err != nil {
		return c.env.fail(err)
	}
	fmt.Fprintf(c.env.Out, "Completed planned item %d.\n", id)
	return subcommands.ExitSuccess
}

type rmPlanCmd struct {
	env *Env
}

func (*rmPlanCmd) Name() string     { return "rm-plan" }
func (*rmPlanCmd) Synopsis() string { return "delete a planned item" }
func (*rmPlanCmd) Usage() string {
	return `cashbook rm-plan <id>
`
}
func (*rmPlanCmd) SetFlags(*flag.FlagSet) {}

func (c *rmPlanCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, err := idArg(f)
	if err != nil {
		return c.env.usage(f, "%v", err)
	}
	if err := c.env.Ledger.DeletePlannedItem(ctx, id); err != nil {
		return c.env.fail(err)
	}
	fmt.Fprintf(c.env.Out, "Deleted planned item %d.\n", id)
	return subcommands.ExitSuccess
}

type remindCmd struct {
	env    *Env
	dryRun bool
}

func (*remindCmd) Name() string     { return "remind" }
func (*remindCmd) Synopsis() string { return "run one reminder pass" }
func (*remindCmd) Usage() string {
	return `cashbook remind [-dry-run]

  Sends a reminder for every pending item due today or tomorrow.
`
}

func (c *remindCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.dryRun, "dry-run", false, "Print the reminders without sending them.")
}

func (c *remindCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	now := c.env.Now().In(c.env.Location)

	if c.dryRun {
		items, err := c.env.Ledger.PendingPlanned(ctx)
		if err != nil {
			return c.env.fail(err)
		}
		code, err := c.env.Settings.CurrencyCode(ctx)
		if err != nil {
			return c.env.fail(err)
		}
		for _, ev := range reminder.Evaluate(items, now) {
			n := services.RenderNotification(ev, code)
			fmt.Fprintf(c.env.Out, "[%d] %s\n    %s\n", n.ID, n.Title, n.Body)
		}
		return subcommands.ExitSuccess
	}

	if c.env.NewNotifier == nil {
		return c.env.fail(fmt.Errorf("no notifier configured"))
	}
	notifier, closeNotifier, err := c.env.NewNotifier()
	if err != nil {
		return c.env.fail(err)
	}
	defer closeNotifier()

	processor := services.NewReminderProcessor(c.env.Ledger, c.env.Settings, notifier)
	sent, err := processor.RunReminderPass(ctx, now)
	fmt.Fprintf(c.env.Out, "Sent %d reminder(s).\n", len(sent))
	if err != nil {
		return c.env.fail(err)
	}
	return subcommands.ExitSuccess
}
