package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/amirphl/gateway-campaign-broker/app/logger"
	"github.com/amirphl/gateway-campaign-broker/utils"
)

const statsSheetName = "Stats"

// ExportStats renders the campaign and its gateway counters as an xlsx workbook
func (s *CampaignFlowImpl) ExportStats(ctx context.Context, campaignUUID string) (string, []byte, error) {
	stats, err := s.FetchStats(ctx, campaignUUID)
	if err != nil {
		return "", nil, err
	}
	campaign, err := s.loadCampaign(ctx, campaignUUID)
	if err != nil {
		return "", nil, err
	}

	xl := excelize.NewFile()
	defer func() {
		if err := xl.Close(); err != nil {
			logger.WithRequestID(ctx, s.logger).Warn("Failed to close workbook", zap.Error(err))
		}
	}()
	xl.SetSheetName(xl.GetSheetName(0), statsSheetName)

	scheduled := ""
	if campaign.ScheduledSendAt != nil {
		scheduled = campaign.ScheduledSendAt.In(utils.SeoulLocation()).Format(time.DateTime)
	}

	rows := [][]any{
		{"Field", "Value"},
		{"Campaign UUID", stats.UUID},
		{"Gateway ID", stats.RemoteID},
		{"Title", campaign.Title},
		{"Status", string(campaign.Status)},
		{"Environment", string(campaign.Environment)},
		{"Scheduled send (KST)", scheduled},
		{"Target count", stats.TargetCount},
		{"Sent count", stats.SentCount},
		{"Success count", stats.SuccessCount},
		{"Fail count", stats.FailCount},
		{"Click count", stats.ClickCount},
		{"Simulated", stats.Simulated},
		{"Fetched at", stats.FetchedAt},
	}
	for ri, row := range rows {
		cellRef, _ := excelize.CoordinatesToCellName(1, ri+1)
		r := row
		_ = xl.SetSheetRow(statsSheetName, cellRef, &r)
	}
	_ = xl.SetColWidth(statsSheetName, "A", "A", 24)
	_ = xl.SetColWidth(statsSheetName, "B", "B", 40)

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("STATS_EXPORT_FAILED", "Failed to render stats workbook", err)
	}

	filename := fmt.Sprintf("campaign_%s_stats_%s.xlsx", stats.RemoteID, s.now().Format("20060102150405"))
	return filename, buf.Bytes(), nil
}
