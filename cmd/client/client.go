package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"orderengine/internal/common"
	orderNet "orderengine/internal/net"
)

func main() {
	var serverAddr, owner string

	root := &cobra.Command{
		Use:   "orderengine-client",
		Short: "Place, cancel, and modify orders against a running matching engine.",
	}
	root.PersistentFlags().StringVar(&serverAddr, "server", "127.0.0.1:9001", "address of the exchange server")
	root.PersistentFlags().StringVar(&owner, "owner", "", "owner username")
	root.MarkPersistentFlagRequired("owner")

	root.AddCommand(
		placeCommand(&serverAddr, &owner),
		cancelCommand(&serverAddr),
		modifyCommand(&serverAddr),
		logCommand(&serverAddr),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func placeCommand(serverAddr, owner *string) *cobra.Command {
	var sideStr, typeStr, ticker string
	var price int64
	var quantity uint64

	cmd := &cobra.Command{
		Use:   "place",
		Short: "Place a new order.",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := dial(*serverAddr, *owner)
			if err != nil {
				return err
			}
			defer conn.Close()

			side, err := parseSide(sideStr)
			if err != nil {
				return err
			}
			orderType, err := parseOrderType(typeStr)
			if err != nil {
				return err
			}

			if err := sendPlaceOrder(conn, *owner, orderType, side, ticker, common.Price(price), common.Quantity(quantity)); err != nil {
				return fmt.Errorf("send place order: %w", err)
			}
			fmt.Printf("-> sent %s %s order: %s %d @ %d\n", typeStr, sideStr, ticker, quantity, price)
			waitForReports(conn)
			return nil
		},
	}

	cmd.Flags().StringVar(&sideStr, "side", "buy", "order side: buy|sell")
	cmd.Flags().StringVar(&typeStr, "type", "limit", "order type: limit|ioc|market")
	cmd.Flags().StringVar(&ticker, "ticker", "AAPL", "ticker symbol")
	cmd.Flags().Int64Var(&price, "price", 100, "limit price in ticks (ignored for market orders)")
	cmd.Flags().Uint64Var(&quantity, "qty", 10, "order quantity")
	return cmd
}

func cancelCommand(serverAddr *string) *cobra.Command {
	var orderId string

	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a resting order by id.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if orderId == "" {
				return fmt.Errorf("--id is required")
			}
			conn, err := net.Dial("tcp", *serverAddr)
			if err != nil {
				return fmt.Errorf("connect to %s: %w", *serverAddr, err)
			}
			defer conn.Close()

			if err := sendCancelOrder(conn, common.OrderId(orderId)); err != nil {
				return fmt.Errorf("send cancel order: %w", err)
			}
			fmt.Printf("-> sent cancel for order %s\n", orderId)
			waitForReports(conn)
			return nil
		},
	}
	cmd.Flags().StringVar(&orderId, "id", "", "id of the order to cancel")
	return cmd
}

func modifyCommand(serverAddr *string) *cobra.Command {
	var orderId, sideStr string
	var price int64
	var quantity uint64

	cmd := &cobra.Command{
		Use:   "modify",
		Short: "Modify a resting order's side, price, and quantity.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if orderId == "" {
				return fmt.Errorf("--id is required")
			}
			side, err := parseSide(sideStr)
			if err != nil {
				return err
			}

			conn, err := net.Dial("tcp", *serverAddr)
			if err != nil {
				return fmt.Errorf("connect to %s: %w", *serverAddr, err)
			}
			defer conn.Close()

			if err := sendModifyOrder(conn, common.OrderId(orderId), side, common.Price(price), common.Quantity(quantity)); err != nil {
				return fmt.Errorf("send modify order: %w", err)
			}
			fmt.Printf("-> sent modify for order %s: %s %d @ %d\n", orderId, sideStr, quantity, price)
			waitForReports(conn)
			return nil
		},
	}
	cmd.Flags().StringVar(&orderId, "id", "", "id of the order to modify")
	cmd.Flags().StringVar(&sideStr, "side", "buy", "new order side: buy|sell")
	cmd.Flags().Int64Var(&price, "price", 100, "new limit price in ticks")
	cmd.Flags().Uint64Var(&quantity, "qty", 10, "new order quantity")
	return cmd
}

func logCommand(serverAddr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "log",
		Short: "Ask the server to print the current book depth.",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := net.Dial("tcp", *serverAddr)
			if err != nil {
				return fmt.Errorf("connect to %s: %w", *serverAddr, err)
			}
			defer conn.Close()

			if err := sendLog(conn); err != nil {
				return fmt.Errorf("send log request: %w", err)
			}
			fmt.Println("-> sent log request")
			return nil
		},
	}
}

func dial(serverAddr, owner string) (net.Conn, error) {
	conn, err := net.Dial("tcp", serverAddr)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", serverAddr, err)
	}
	fmt.Printf("connected to %s as '%s'\n", serverAddr, owner)
	return conn, nil
}

func parseSide(s string) (common.Side, error) {
	switch strings.ToLower(s) {
	case "buy":
		return common.Buy, nil
	case "sell":
		return common.Sell, nil
	default:
		return 0, fmt.Errorf("unknown side %q", s)
	}
}

func parseOrderType(s string) (common.OrderType, error) {
	switch strings.ToLower(s) {
	case "limit":
		return common.GoodTillCancel, nil
	case "ioc":
		return common.ImmediateOrCancel, nil
	case "market":
		return common.Market, nil
	default:
		return 0, fmt.Errorf("unknown order type %q", s)
	}
}

func sendPlaceOrder(conn net.Conn, owner string, orderType common.OrderType, side common.Side, ticker string, price common.Price, qty common.Quantity) error {
	tickerLen, usernameLen := len(ticker), len(owner)
	body := make([]byte, orderNet.NewOrderFixedLen+tickerLen+usernameLen)

	binary.BigEndian.PutUint16(body[0:2], uint16(orderType))
	body[2] = byte(side)
	binary.BigEndian.PutUint64(body[3:11], uint64(price))
	binary.BigEndian.PutUint64(body[11:19], uint64(qty))
	body[19] = byte(tickerLen)
	body[20] = byte(usernameLen)
	copy(body[orderNet.NewOrderFixedLen:], ticker)
	copy(body[orderNet.NewOrderFixedLen+tickerLen:], owner)

	return writeMessage(conn, orderNet.NewOrder, body)
}

func sendCancelOrder(conn net.Conn, id common.OrderId) error {
	body := make([]byte, orderNet.CancelOrderFixedLen+len(id))
	body[0] = byte(len(id))
	copy(body[orderNet.CancelOrderFixedLen:], id)
	return writeMessage(conn, orderNet.CancelOrder, body)
}

func sendModifyOrder(conn net.Conn, id common.OrderId, side common.Side, price common.Price, qty common.Quantity) error {
	body := make([]byte, orderNet.ModifyOrderFixedLen+len(id))
	body[0] = byte(len(id))
	body[1] = byte(side)
	binary.BigEndian.PutUint64(body[2:10], uint64(price))
	binary.BigEndian.PutUint64(body[10:18], uint64(qty))
	copy(body[orderNet.ModifyOrderFixedLen:], id)
	return writeMessage(conn, orderNet.ModifyOrder, body)
}

func sendLog(conn net.Conn) error {
	return writeMessage(conn, orderNet.LogBook, nil)
}

func writeMessage(conn net.Conn, typeOf orderNet.MessageType, body []byte) error {
	buf := make([]byte, orderNet.BaseMessageHeaderLen+len(body))
	binary.BigEndian.PutUint16(buf[0:2], uint16(typeOf))
	copy(buf[orderNet.BaseMessageHeaderLen:], body)
	_, err := conn.Write(buf)
	return err
}

// reportFixedLen mirrors net.reportFixedLen: Type(1) + Side(1) + Price(8) +
// Quantity(8) + OrderIdLen(1) + CounterpartyOrderIdLen(1) + ErrStrLen(4).
const reportFixedLen = 1 + 1 + 8 + 8 + 1 + 1 + 4

// waitForReports blocks, printing execution and error reports as they
// arrive, until the connection closes.
func waitForReports(conn net.Conn) {
	for {
		header := make([]byte, reportFixedLen)
		if _, err := io.ReadFull(conn, header); err != nil {
			if err != io.EOF {
				fmt.Fprintf(os.Stderr, "connection lost: %v\n", err)
			}
			return
		}

		typeOf := orderNet.ReportMessageType(header[0])
		side := common.Side(header[1])
		price := common.Price(binary.BigEndian.Uint64(header[2:10]))
		quantity := common.Quantity(binary.BigEndian.Uint64(header[10:18]))
		orderIdLen := int(header[18])
		counterpartyIdLen := int(header[19])
		errLen := int(binary.BigEndian.Uint32(header[20:24]))

		rest := make([]byte, orderIdLen+counterpartyIdLen+errLen)
		if errLen+orderIdLen+counterpartyIdLen > 0 {
			if _, err := io.ReadFull(conn, rest); err != nil {
				fmt.Fprintf(os.Stderr, "error reading report body: %v\n", err)
				return
			}
		}
		orderId := common.OrderId(rest[:orderIdLen])
		counterpartyId := common.OrderId(rest[orderIdLen : orderIdLen+counterpartyIdLen])
		errStr := string(rest[orderIdLen+counterpartyIdLen:])

		if typeOf == orderNet.ErrorReport {
			fmt.Printf("\n[error] %s\n", errStr)
			continue
		}

		sideStr := "BUY"
		if side == common.Sell {
			sideStr = "SELL"
		}
		fmt.Printf("\n[fill] %s order %s: %d @ %d vs %s\n", sideStr, orderId, quantity, price, counterpartyId)
	}
}
