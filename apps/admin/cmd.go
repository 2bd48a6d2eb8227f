package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/trezcool/elimu/core/account"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	acctSvc account.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  listpending - list accounts awaiting approval")
	fmt.Println("  approve -id ID - approve a pending account")
	fmt.Println("  reject -id ID -reason REASON - reject an account")
	fmt.Println("  resetpassword -email EMAIL - reset an account's password")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	listPendingCmd := flag.NewFlagSet("listpending", flag.ExitOnError)

	approveCmd := flag.NewFlagSet("approve", flag.ExitOnError)
	approveID := approveCmd.String("id", "", "The account's ID.")

	rejectCmd := flag.NewFlagSet("reject", flag.ExitOnError)
	rejectID := rejectCmd.String("id", "", "The account's ID.")
	rejectReason := rejectCmd.String("reason", "", "The rejection reason (required).")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The account's email. The password will be prompted next.")

	switch args[1] {
	case "listpending":
		if err := listPendingCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.listPending()
	case "approve":
		if err := approveCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *approveID == "" {
			approveCmd.Usage()
			return errHelp
		}
		return cli.approve(*approveID)
	case "reject":
		if err := rejectCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *rejectID == "" {
			rejectCmd.Usage()
			return errHelp
		}
		return cli.reject(*rejectID, *rejectReason)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.acctSvc.ResetPassword(*resetPasswordEmail, string(pwd))
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) listPending() error {
	accts, err := cli.acctSvc.Pending()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(logger.Writer(), 0, 8, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tROLE\tNAME\tEMAIL\tCREATED")
	for _, acct := range accts {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", acct.ID, acct.Role, acct.Name, acct.Email, acct.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func (cli *commandLine) approve(id string) error {
	decision, err := cli.acctSvc.Approve(id)
	if err != nil {
		return err
	}
	logger.Printf("account %s approved at %s", decision.AccountID, decision.At.Format("2006-01-02 15:04:05"))
	return nil
}

func (cli *commandLine) reject(id, reason string) error {
	decision, err := cli.acctSvc.Reject(id, reason)
	if err != nil {
		return err
	}
	logger.Printf("account %s rejected: %s", decision.AccountID, decision.Reason)
	return nil
}
