package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "Feedback server base URL")
	orderID := flag.String("order", "123e4567-e89b-12d3-a456-426614174000", "Order ID")
	restaurant := flag.String("restaurant", "", "Restaurant name (looked up from the order when empty)")
	items := flag.String("items", "", "Comma-separated food items")
	summarize := flag.Bool("summarize", false, "Summarize the file instead of generating a review")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("usage: review-cli [flags] <transcript-file>")
	}

	text, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to read transcript: %v", err)
	}

	client := &http.Client{Timeout: 90 * time.Second}

	var path string
	var body any
	if *summarize {
		path = "/api/summarize"
		body = map[string]any{"text": string(text)}
	} else {
		path = "/api/generate-review"
		req := map[string]any{
			"transcript": string(text),
			"order_id":   *orderID,
		}
		if *restaurant != "" {
			req["restaurant_name"] = *restaurant
		}
		if *items != "" {
			req["food_items"] = strings.Split(*items, ",")
		}
		body = req
	}

	payload, err := json.Marshal(body)
	if err != nil {
		log.Fatalf("Failed to encode request: %v", err)
	}

	start := time.Now()
	resp, err := client.Post(*serverURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Failed to read response: %v", err)
	}

	log.Printf("📥 %s in %v", resp.Status, time.Since(start).Round(time.Millisecond))

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, out, "", "  "); err != nil {
		fmt.Println(string(out))
		return
	}
	fmt.Println(pretty.String())
}
