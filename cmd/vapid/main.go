// Command vapid prints a fresh VAPID key pair for web push.
package main

import (
	"fmt"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/charmbracelet/log"
)

func main() {
	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		log.Fatal("failed to generate VAPID keys", "err", err)
	}

	fmt.Println("Add these to your .env file:")
	fmt.Println()
	fmt.Printf("VAPID_PUBLIC_KEY=%s\n", publicKey)
	fmt.Printf("VAPID_PRIVATE_KEY=%s\n", privateKey)
	fmt.Println("VAPID_SUBJECT=mailto:admin@heartmatch.app")
}
