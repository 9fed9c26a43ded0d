// Package main implements a standalone seed script that populates a running
// catalog-search service with a realistic product set over HTTP. It is meant
// for demos and manual cache testing, not for automated tests.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func httpPost(url string, body any) (map[string]any, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var result map[string]any
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return result, nil
}

type product struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       int64  `json:"price"`
	Stock       int    `json:"stock"`
}

var products = []product{
	{"Laptop", "14-inch ultrabook with 16GB RAM and a 1TB SSD", "Electronics", 129900, 12},
	{"Laptop Pro", "16-inch workstation with a dedicated GPU", "Electronics", 249900, 5},
	{"Laptop Stand", "Aluminium stand with adjustable height", "Accessories", 4900, 40},
	{"USB Cable", "Braided USB-C to USB-C cable, 2m", "Laptop Accessories", 1900, 200},
	{"Wireless Mouse", "Silent-click mouse with a laptop-friendly nano receiver", "Accessories", 2900, 85},
	{"Mechanical Keyboard", "Hot-swappable switches, PBT keycaps", "Accessories", 10900, 30},
	{"4K Monitor", "27-inch IPS panel with USB-C power delivery", "Electronics", 39900, 18},
	{"Noise Cancelling Headphones", "Over-ear, 30-hour battery", "Audio", 27900, 22},
	{"Bluetooth Speaker", "Waterproof speaker with 12-hour playback", "Audio", 8900, 60},
	{"Webcam", "1080p webcam with privacy shutter", "Electronics", 6900, 45},
	{"Desk Lamp", "LED lamp with wireless charging base", "Office", 5900, 35},
	{"Standing Desk", "Dual-motor sit-stand desk, 140x70cm", "Office", 54900, 8},
	{"Ergonomic Chair", "Mesh back with adjustable lumbar support", "Office", 32900, 0},
	{"Phone Case", "Shockproof case with card slot", "Accessories", 2400, 150},
	{"Smart Watch", "Fitness tracking with a week of battery", "Electronics", 19900, 25},
	{"Tablet", "10-inch tablet for reading and sketching", "Electronics", 44900, 15},
	{"External SSD", "2TB portable SSD, 1050MB/s", "Storage", 17900, 55},
	{"Memory Card", "512GB microSD with adapter", "Storage", 6400, 120},
	{"Docking Station", "Dual-4K docking station for laptop setups", "Laptop Accessories", 21900, 14},
	{"Cable Organizer", "Magnetic cable clips, pack of six", "Office", 1200, 0},
}

func main() {
	log.SetFlags(log.LstdFlags)
	log.SetPrefix("[seed] ")

	baseURL := getEnv("CATALOG_URL", "http://localhost:8080")
	endpoint := baseURL + "/api/v1/products"

	log.Println("========================================")
	log.Printf("seeding catalog at %s", baseURL)
	log.Println("========================================")

	created := 0
	for _, p := range products {
		result, err := httpPost(endpoint, p)
		if err != nil {
			log.Printf("FAILED %q: %v", p.Name, err)
			continue
		}

		id := ""
		if data, ok := result["data"].(map[string]any); ok {
			id, _ = data["id"].(string)
		}
		log.Printf("created %q (%s)", p.Name, id)
		created++
	}

	log.Println("========================================")
	log.Printf("done: %d/%d products created", created, len(products))
	log.Println("========================================")

	if created < len(products) {
		os.Exit(1)
	}
}
