package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"log"
	"math/rand"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/bingoserver/game"
	"github.com/wfunc/bingoserver/models"
	"github.com/wfunc/bingoserver/network"
)

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, data []byte) error {
	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func sendJSON(c *websocket.Conn, msgID uint16, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return send(c, msgID, data)
}

func main() {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: "localhost:8080", Path: "/ws"}
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
			if len(message) < 4 {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			msgID := binary.BigEndian.Uint16(message[0:2])
			data := message[4:]
			log.Printf("<- RECV (ID: %d): %s", msgID, string(data))
		}
	}()

	name := "cli"
	if len(os.Args) > 1 {
		name = os.Args[1]
	}

	log.Println("Commands: create | join CODE | bot | start | place CELL | fill | grid | call N | rematch | leave")

	// Write loop
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		default:
			text, _ := reader.ReadString('\n')
			fields := strings.Fields(strings.TrimSpace(text))
			if len(fields) == 0 {
				continue
			}

			var err error
			switch fields[0] {
			case "create":
				err = sendJSON(c, network.MsgCreateRoom, map[string]string{"name": name})
			case "join":
				if len(fields) < 2 {
					log.Println("usage: join CODE")
					continue
				}
				err = sendJSON(c, network.MsgJoinRoom, map[string]string{
					"code": strings.ToUpper(fields[1]),
					"name": name,
				})
			case "bot":
				err = send(c, network.MsgAddBot, nil)
			case "start":
				err = send(c, network.MsgStartGame, nil)
			case "place":
				if len(fields) < 2 {
					log.Println("usage: place CELL")
					continue
				}
				cell, convErr := strconv.Atoi(fields[1])
				if convErr != nil {
					log.Println("usage: place CELL")
					continue
				}
				err = sendJSON(c, network.MsgPlaceCell, map[string]int{"cell": cell})
			case "fill":
				err = send(c, network.MsgRandomFill, nil)
			case "grid":
				// 本地随机生成一张合法卡片提交
				card := models.NewCardState()
				game.RandomFill(card, rng)
				err = sendJSON(c, network.MsgSubmitGrid, map[string][]int{"grid": card.Grid})
			case "call":
				if len(fields) < 2 {
					log.Println("usage: call N")
					continue
				}
				n, convErr := strconv.Atoi(fields[1])
				if convErr != nil {
					log.Println("usage: call N")
					continue
				}
				err = sendJSON(c, network.MsgCallNumber, map[string]int{"number": n})
			case "rematch":
				err = send(c, network.MsgRematch, nil)
			case "leave":
				err = send(c, network.MsgLeaveRoom, nil)
			default:
				log.Printf("unknown command %q", fields[0])
				continue
			}

			if err != nil {
				log.Println("Write error:", err)
				return
			}
			log.Printf("-> SENT: %s", fields[0])
		}
	}
}
