package handlers

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

// QRHandler renders the active Book ID as a QR code so another device can
// join the book by scanning it.
type QRHandler struct {
	bookID func() string
}

func NewQRHandler(bookID func() string) *QRHandler {
	return &QRHandler{bookID: bookID}
}

// BookQR returns a PNG QR code of the Book ID
// @Summary Book ID QR code
// @Tags book
// @Produce png
// @Param size query int false "Image size in pixels (64-1024)"
// @Success 200 {file} binary
// @Router /book/qr [get]
func (h *QRHandler) BookQR(w http.ResponseWriter, r *http.Request) {
	size := 256
	if v := r.URL.Query().Get("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 64 && n <= 1024 {
			size = n
		}
	}

	png, err := qrcode.Encode(h.bookID(), qrcode.Medium, size)
	if err != nil {
		log.Error().Err(err).Msg("Failed to render book QR code")
		http.Error(w, "Failed to render QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}
