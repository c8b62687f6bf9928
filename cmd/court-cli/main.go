// Command court-cli is the operator and participant CLI for the confidential
// court service.
//
// Every subcommand acts as the account derived from the signing key, given
// with --key or the SIGNING_KEY environment variable. The service URL comes
// from --court or COURT_URL; the oracle endpoints are expected on the same
// host, as courtd serves both.
//
// # Subcommands
//
//	create-trial    open a trial between two parties (caller becomes judge)
//	close-trial     close a trial (judge only)
//	get-trial       print one trial record
//	list-trials     list the caller's trials
//	send-message    encrypt and post a statement under a fresh pen name
//	decrypt-message reveal a statement's text and pen-name address
//
// # Usage
//
//	go run ./cmd/court-cli send-message --trial 1 --message "Test message"
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/bytebloomg/PrivateCourt/cmd/common"
	"github.com/bytebloomg/PrivateCourt/codec"
	"github.com/bytebloomg/PrivateCourt/crypto"
	"github.com/bytebloomg/PrivateCourt/grant"
	"github.com/bytebloomg/PrivateCourt/services"
)

func main() {
	common.LoadEnv()

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "create-trial":
		err = runCreateTrial(ctx, os.Args[2:])
	case "close-trial":
		err = runCloseTrial(ctx, os.Args[2:])
	case "get-trial":
		err = runGetTrial(ctx, os.Args[2:])
	case "list-trials":
		err = runListTrials(ctx, os.Args[2:])
	case "send-message":
		err = runSendMessage(ctx, os.Args[2:])
	case "decrypt-message":
		err = runDecryptMessage(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: court-cli <create-trial|close-trial|get-trial|list-trials|send-message|decrypt-message> [flags]")
}

// commonFlags registers the flags every subcommand shares.
func commonFlags(fs *flag.FlagSet) (courtURL, keyHex *string) {
	courtURL = fs.String("court", common.EnvOr("COURT_URL", "http://localhost:8090"), "Court service URL")
	keyHex = fs.String("key", os.Getenv("SIGNING_KEY"), "Ed25519 signing key (hex, generates if empty)")
	return courtURL, keyHex
}

func newClient(courtURL, keyHex string) (*services.CourtClient, crypto.PrivateKey, error) {
	signingKey, err := common.LoadOrGenerateSigningKey(keyHex)
	if err != nil {
		return nil, nil, err
	}
	return services.NewCourtClient(courtURL, signingKey), signingKey, nil
}

func runCreateTrial(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-trial", flag.ExitOnError)
	courtURL, keyHex := commonFlags(fs)
	partyAHex := fs.String("party-a", "", "Party A address")
	partyBHex := fs.String("party-b", "", "Party B address")
	fs.Parse(args)

	partyA, err := crypto.AddressFromHex(*partyAHex)
	if err != nil {
		return fmt.Errorf("party A: %w", err)
	}
	partyB, err := crypto.AddressFromHex(*partyBHex)
	if err != nil {
		return fmt.Errorf("party B: %w", err)
	}

	client, _, err := newClient(*courtURL, *keyHex)
	if err != nil {
		return err
	}

	judge, _ := client.Address()
	trialID, err := client.CreateTrial(ctx, partyA, partyB)
	if err != nil {
		return err
	}

	fmt.Printf("Trial %d created (judge %s)\n", trialID, judge)
	return nil
}

func runCloseTrial(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("close-trial", flag.ExitOnError)
	courtURL, keyHex := commonFlags(fs)
	trialID := fs.Uint64("trial", 0, "Trial id")
	fs.Parse(args)

	client, _, err := newClient(*courtURL, *keyHex)
	if err != nil {
		return err
	}

	if err := client.CloseTrial(ctx, *trialID); err != nil {
		return err
	}
	fmt.Printf("Trial %d closed\n", *trialID)
	return nil
}

func runGetTrial(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("get-trial", flag.ExitOnError)
	courtURL, keyHex := commonFlags(fs)
	trialID := fs.Uint64("trial", 0, "Trial id")
	fs.Parse(args)

	client, _, err := newClient(*courtURL, *keyHex)
	if err != nil {
		return err
	}

	trial, err := client.GetTrial(ctx, *trialID)
	if err != nil {
		return err
	}

	state := "closed"
	if trial.IsActive {
		state = "active"
	}
	fmt.Printf("Trial %d (%s)\n", trial.ID, state)
	fmt.Printf("  Judge:    %s\n", trial.Judge)
	fmt.Printf("  Party A:  %s\n", trial.PartyA)
	fmt.Printf("  Party B:  %s\n", trial.PartyB)
	fmt.Printf("  Messages: %d\n", trial.MessageCount)
	return nil
}

func runListTrials(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list-trials", flag.ExitOnError)
	courtURL, keyHex := commonFlags(fs)
	fs.Parse(args)

	client, _, err := newClient(*courtURL, *keyHex)
	if err != nil {
		return err
	}

	account, err := client.Address()
	if err != nil {
		return err
	}
	ids, err := client.TrialsForAddress(ctx, account)
	if err != nil {
		return err
	}

	fmt.Printf("Account %s participates in %d trial(s)\n", account, len(ids))
	for _, id := range ids {
		fmt.Printf("  trial %d\n", id)
	}
	return nil
}

func runSendMessage(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("send-message", flag.ExitOnError)
	courtURL, keyHex := commonFlags(fs)
	trialID := fs.Uint64("trial", 0, "Trial id")
	message := fs.String("message", "", "Statement text")
	fs.Parse(args)

	client, _, err := newClient(*courtURL, *keyHex)
	if err != nil {
		return err
	}
	sender, err := client.Address()
	if err != nil {
		return err
	}
	contract, err := client.Contract(ctx)
	if err != nil {
		return err
	}

	// A fresh pen-name identity per message: only readers who decrypt the
	// author field learn it, the public ledger shows the sender account.
	penPub, _, err := crypto.GenerateKeyPair()
	if err != nil {
		return err
	}
	penName := crypto.AddressFromPublicKey(penPub)

	textField, err := codec.TextField(*message)
	if err != nil {
		return err
	}
	fields := []codec.Field{textField, codec.AddressField(penName)}

	oracle := services.NewOracleClient(*courtURL)
	input, err := codec.BuildEncryptedInput(oracle, contract, sender, fields)
	if err != nil {
		return err
	}

	index, err := client.SendMessage(ctx, *trialID, input.Handles[0], input.Handles[1], input.Proof)
	if err != nil {
		return err
	}

	fmt.Printf("Message %d posted to trial %d (pen name %s)\n", index, *trialID, penName)
	return nil
}

func runDecryptMessage(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("decrypt-message", flag.ExitOnError)
	courtURL, keyHex := commonFlags(fs)
	trialID := fs.Uint64("trial", 0, "Trial id")
	index := fs.Uint64("index", 0, "Message index")
	fs.Parse(args)

	client, signingKey, err := newClient(*courtURL, *keyHex)
	if err != nil {
		return err
	}
	contract, err := client.Contract(ctx)
	if err != nil {
		return err
	}

	entry, err := client.GetMessage(ctx, *trialID, *index)
	if err != nil {
		return err
	}

	signer, err := grant.NewWalletSigner(signingKey)
	if err != nil {
		return err
	}

	decryptor := grant.NewDecryptor(services.NewOracleClient(*courtURL))
	text, author, err := decryptor.DecryptMessage(ctx, signer, contract, entry.EncryptedContent, entry.EncryptedAuthor)
	if err != nil {
		return err
	}

	fmt.Printf("Trial %d message %d\n", *trialID, *index)
	fmt.Printf("  Posted by: %s at %s\n", entry.Sender, entry.Timestamp.Format(time.RFC3339))
	fmt.Printf("  Pen name:  %s\n", author)
	fmt.Printf("  Text:      %s\n", text)
	return nil
}
