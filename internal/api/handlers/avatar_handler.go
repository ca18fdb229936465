package handlers

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoohealth/internal/services"
	"github.com/yoockh/yoohealth/internal/utils"
)

// UploadAvatar handles a multipart "file" field. The content type is sniffed
// from the bytes, not taken from the client.
func (h *AuthHandler) UploadAvatar(c *gin.Context) {
	const op = "AuthHandler.UploadAvatar"

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing multipart field 'file'", err))
		return
	}
	if fh.Size <= 0 || fh.Size > services.MaxAvatarBytes {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "file too large (max 2MB)", nil))
		return
	}

	file, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to open upload", err))
		return
	}
	defer file.Close()

	// sniff content type (read 512 bytes)
	head := make([]byte, 512)
	n, _ := io.ReadFull(file, head)
	head = head[:n]
	ct := http.DetectContentType(head)

	u, err := h.svc.UploadAvatar(c.Request.Context(), userID, ct, fh.Size, io.MultiReader(bytes.NewReader(head), file))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
