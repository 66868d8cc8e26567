package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/dvloznov/nova-bank/internal/account"
	"github.com/dvloznov/nova-bank/internal/chat"
	"github.com/dvloznov/nova-bank/internal/domain"
	"github.com/dvloznov/nova-bank/internal/logger"
	"github.com/shopspring/decimal"
)

// balanceCmd prints the dashboard figures.
type balanceCmd struct{}

func (c *balanceCmd) Run(g *Globals) error {
	ctx := logger.WithContext(context.Background(), g.log)

	acct, cleanup, err := g.openAccount(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	stats := acct.Snapshot().Stats
	fmt.Printf("Total balance:     $%s\n", stats.TotalBalance.StringFixed(2))
	fmt.Printf("Monthly income:    $%s\n", stats.MonthlyIncome.StringFixed(2))
	fmt.Printf("Monthly expenses:  $%s\n", stats.MonthlyExpenses.StringFixed(2))
	fmt.Printf("Savings rate:      %.1f%%\n", stats.SavingsRate)
	return nil
}

// historyCmd lists the ledger, optionally filtered.
type historyCmd struct {
	Query string `short:"q" help:"Only show transactions whose description or category contains this text."`
	Limit int    `default:"0" help:"Show at most this many transactions (0 = all)."`
}

func (c *historyCmd) Run(g *Globals) error {
	ctx := logger.WithContext(context.Background(), g.log)

	acct, cleanup, err := g.openAccount(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	txs := domain.FilterTransactions(acct.Snapshot().Transactions, c.Query)
	if c.Limit > 0 && len(txs) > c.Limit {
		txs = txs[:c.Limit]
	}
	if len(txs) == 0 {
		fmt.Println("No transactions found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "DATE\tDESCRIPTION\tCATEGORY\tAMOUNT\t")
	for _, tx := range txs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n",
			tx.Date.Local().Format("2006-01-02 15:04"),
			tx.Description,
			tx.Category,
			formatSigned(tx.Amount),
		)
	}
	return w.Flush()
}

func formatSigned(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "-$" + amount.Abs().StringFixed(2)
	}
	return "+$" + amount.StringFixed(2)
}

// transferCmd performs one transfer synchronously.
type transferCmd struct {
	Recipient string `arg help:"Recipient name or email."`
	Amount    string `arg help:"Amount in dollars, e.g. 12.50."`
	Note      string `short:"n" help:"Optional note added to the description."`
}

func (c *transferCmd) Run(g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, g.log)

	amount, err := decimal.NewFromString(strings.TrimSpace(c.Amount))
	if err != nil {
		return errors.New(account.ErrInvalidAmount.UserMessage)
	}

	acct, cleanup, err := g.openAccount(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := acct.Validate(amount); err != nil {
		var verr *account.ValidationError
		if errors.As(err, &verr) {
			return errors.New(verr.UserMessage)
		}
		return err
	}

	fmt.Println("Processing...")
	tx, err := acct.Transfer(ctx, strings.TrimSpace(c.Recipient), amount, strings.TrimSpace(c.Note))
	if err != nil {
		var verr *account.ValidationError
		if errors.As(err, &verr) {
			return errors.New(verr.UserMessage)
		}
		g.log.Error().Err(err).Msg("Transfer failed")
		return errors.New(account.TransferFailedMessage)
	}

	fmt.Println("Transfer Successful!")
	fmt.Printf("%s  %s\n", tx.Description, formatSigned(tx.Amount))
	fmt.Printf("New balance: $%s\n", acct.Snapshot().Balance.StringFixed(2))
	return nil
}

// adviseCmd asks a single question, or starts an interactive session when
// no message is given.
type adviseCmd struct {
	Message []string `arg optional help:"Question for Nova. Omit for an interactive session."`
}

func (c *adviseCmd) Run(g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, g.log)

	acct, cleanup, err := g.openAccount(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	adv, err := g.newAdvisor(ctx)
	if err != nil {
		return err
	}
	conv := chat.NewConversation(adv, acct, chat.WithLogger(g.log))

	if len(c.Message) > 0 {
		reply, err := conv.Send(ctx, strings.Join(c.Message, " "))
		if err != nil {
			return err
		}
		fmt.Println(reply.Text)
		return nil
	}

	return runSession(ctx, conv, os.Stdin, os.Stdout)
}

// runSession reads questions line by line from in until EOF or until ctx is
// cancelled. Nothing is sent once ctx is done.
func runSession(ctx context.Context, conv *chat.Conversation, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "Nova: %s\n\n", chat.Greeting)
	fmt.Fprintf(out, "Try: %s\n", strings.Join(chat.SuggestedPrompts(), " | "))

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(out, "\nYou: ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = l
		}
		if ctx.Err() != nil {
			fmt.Fprintln(out)
			return nil
		}

		reply, err := conv.Send(ctx, line)
		if errors.Is(err, chat.ErrEmptyMessage) {
			continue
		}
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			fmt.Fprintln(out)
			return nil
		}
		fmt.Fprintf(out, "Nova: %s\n", reply.Text)
	}
}
