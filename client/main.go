// Command client is a small terminal client for manual testing. It creates
// or joins a room, prints every event it receives and sends commands typed
// on stdin:
//
//	pos <x> <y> <direction>
//	scene <name>
//	enter <name>
//	chat <groupId> <text...>
package main

import (
	"bufio"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/wfunc/roomserver/network"
)

var ackSeq atomic.Uint64

func send(c *websocket.Conn, event string, payload any) error {
	frame, err := network.Encode(event, ackSeq.Add(1), payload)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, frame)
}

// command turns one input line into an outbound event.
func command(line string) (string, any, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil, false
	}
	switch fields[0] {
	case "pos":
		if len(fields) != 4 {
			return "", nil, false
		}
		x, errX := strconv.ParseFloat(fields[1], 64)
		y, errY := strconv.ParseFloat(fields[2], 64)
		if errX != nil || errY != nil {
			return "", nil, false
		}
		return network.EventPlayerPosition, map[string]any{
			"position":        map[string]float64{"x": x, "y": y},
			"facingDirection": fields[3],
		}, true
	case "scene":
		if len(fields) != 2 {
			return "", nil, false
		}
		return network.EventSceneTransition, map[string]string{"sceneName": fields[1]}, true
	case "enter":
		if len(fields) != 2 {
			return "", nil, false
		}
		return network.EventPlayerEnteredScene, map[string]string{"sceneName": fields[1]}, true
	case "chat":
		if len(fields) < 3 {
			return "", nil, false
		}
		return network.EventChatMessage, map[string]string{
			"groupId": fields[1],
			"message": strings.Join(fields[2:], " "),
		}, true
	}
	return "", nil, false
}

func main() {
	addr := flag.String("addr", "localhost:3000", "server address")
	username := flag.String("user", "player", "username")
	roomID := flag.String("room", "", "room code to join; empty creates a room")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			p, err := network.Decode(message)
			if err != nil {
				log.Printf("Received invalid frame: %v", err)
				continue
			}
			log.Printf("<- %s %s", p.Event, p.Data)
		}
	}()

	if *roomID == "" {
		err = send(c, network.EventCreateRoom, map[string]string{"username": *username})
	} else {
		err = send(c, network.EventJoinRoom, map[string]string{"roomId": *roomID, "username": *username})
	}
	if err != nil {
		log.Fatalf("Send failed: %v", err)
	}

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-done:
			return
		case line := <-lines:
			event, payload, ok := command(line)
			if !ok {
				log.Printf("unknown command %q", line)
				continue
			}
			if err := send(c, event, payload); err != nil {
				log.Println("Write error:", err)
				return
			}
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
				return
			}
			<-done
			return
		}
	}
}
