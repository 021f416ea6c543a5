package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-phrasebook/pkg/importexport"
	"github.com/smith3v/tg-phrasebook/pkg/logger"
)

// maxImportSize bounds the files accepted for import.
const maxImportSize = 5 << 20

func handleExportCSV(ctx context.Context, b *bot.Bot, msg *models.Message, _ string) {
	sendExport(ctx, b, msg, importexport.FormatCSV)
}

func handleExportXLSX(ctx context.Context, b *bot.Bot, msg *models.Message, _ string) {
	sendExport(ctx, b, msg, importexport.FormatXLSX)
}

func sendExport(ctx context.Context, b *bot.Bot, msg *models.Message, format importexport.Format) {
	data, count, err := importexport.Export(ctx, format)
	if err != nil {
		logger.Error("failed to build export", "format", format, "user_id", senderID(msg), "error", err)
		reply(ctx, b, msg.Chat.ID, "Failed to export your phrasebook. Please try again later.")
		return
	}
	if count == 0 {
		reply(ctx, b, msg.Chat.ID, "Your phrasebook is empty.")
		return
	}

	filename := importexport.ExportFilename(now(), format)
	if _, err := b.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID: msg.Chat.ID,
		Document: &models.InputFileUpload{
			Filename: filename,
			Data:     bytes.NewReader(data),
		},
		Caption: fmt.Sprintf("Exported %d pairs.", count),
	}); err != nil {
		logger.Error("failed to send export", "format", format, "user_id", senderID(msg), "error", err)
		reply(ctx, b, msg.Chat.ID, "Failed to send the export file. Please try again later.")
	}
}

func handleDocumentImport(ctx context.Context, b *bot.Bot, msg *models.Message) {
	doc := msg.Document
	logger.Info("importing file", "file_name", doc.FileName, "user_id", senderID(msg))

	format, err := importexport.FormatFor(doc.FileName)
	if err != nil {
		reply(ctx, b, msg.Chat.ID, "Please upload a .csv or .xlsx file.")
		return
	}
	if doc.FileSize > maxImportSize {
		reply(ctx, b, msg.Chat.ID, "The file is too large to import.")
		return
	}

	data, err := downloadFile(ctx, b, doc.FileID)
	if err != nil {
		logger.Error("failed to download import file", "file_name", doc.FileName, "error", err)
		reply(ctx, b, msg.Chat.ID, "Failed to download the file. Please try again.")
		return
	}

	result, err := importexport.Import(ctx, format, data)
	if err != nil {
		reply(ctx, b, msg.Chat.ID, importErrorText(err))
		return
	}
	if result.Imported == 0 && result.Skipped == 0 {
		reply(ctx, b, msg.Chat.ID, fmt.Sprintf("No valid pairs found to import. Malformed rows: %d.", result.Malformed))
		return
	}
	reply(ctx, b, msg.Chat.ID, fmt.Sprintf("Imported %d pairs, skipped %d already saved, ignored %d malformed rows.",
		result.Imported, result.Skipped, result.Malformed))
}

func importErrorText(err error) string {
	switch {
	case errors.Is(err, importexport.ErrEmptyFile):
		return "The file is empty."
	case errors.Is(err, importexport.ErrMissingHeader):
		return "The first row must be the header: Original,Translated"
	case errors.Is(err, importexport.ErrUnsupportedFormat):
		return "Please upload a .csv or .xlsx file."
	default:
		logger.Error("failed to import file", "error", err)
		return "Failed to import the file. Please try again later."
	}
}
