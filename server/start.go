package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Dark-L1ght/TelegramTokenAddressForwarder/forwarder"
)

// Start brings up the admin surface and blocks. Handlers only read through
// an already-established connection; they never start an interactive login.
func Start(port string, fwd *forwarder.Forwarder) {
	http.HandleFunc("/ping", getPingHandler)
	http.HandleFunc("/chats", withBasicAuth(getChatsHandler(fwd)))
	host := getIP()
	addr := ":" + port
	fmt.Println("Web-server is running: http://" + host + addr)
	if err := http.ListenAndServe(addr, http.DefaultServeMux); err != nil {
		log.Fatal("Error starting http server: ", err)
	}
}

func getPingHandler(w http.ResponseWriter, r *http.Request) {
	ret, err := time.Now().UTC().MarshalJSON()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(err.Error()))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, fmt.Sprintf("{now:%s}", string(ret)))
}

func getChatsHandler(fwd *forwarder.Forwarder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit := 1000
		if len(q["limit"]) == 1 {
			if n, err := strconv.Atoi(q["limit"][0]); err == nil && n > 0 {
				limit = n
			}
		}
		allChats, err := fwd.Chats(int32(limit))
		if err != nil {
			if errors.Is(err, forwarder.ErrNotConnected) {
				w.WriteHeader(http.StatusServiceUnavailable)
			} else {
				w.WriteHeader(http.StatusInternalServerError)
			}
			w.Write([]byte(err.Error()))
			return
		}
		retMap := make(map[string]interface{})
		retMap["total"] = len(allChats)
		var chatList []string
		for _, chat := range allChats {
			chatList = append(chatList, fmt.Sprintf("%d=%s", chat.Id, chat.Title))
		}
		retMap["chatList"] = chatList
		ret, err := json.Marshal(retMap)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(err.Error()))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, string(ret))
	}
}

func getIP() string {
	interfaces, _ := net.Interfaces()
	for _, i := range interfaces {
		addrs, _ := i.Addrs()
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			return ip.String()
		}
	}
	return ""
}
