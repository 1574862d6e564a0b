package krx

import (
	"context"
	"encoding/json"
	"net/url"
)

// issueList maps a KRX 시장조치 현황 screen to the status label the
// screening conditions key on
type issueList struct {
	bld   string
	label string
}

// 관리종목/거래정지/투자주의환기/불성실공시 지정 현황
var issueLists = []issueList{
	{bld: "dbms/MDC/STAT/issue/MDCSTAT23401", label: "관리종목"},
	{bld: "dbms/MDC/STAT/issue/MDCSTAT23501", label: "거래정지"},
	{bld: "dbms/MDC/STAT/issue/MDCSTAT23601", label: "투자주의환기종목"},
	{bld: "dbms/MDC/STAT/issue/MDCSTAT23701", label: "불성실공시법인"},
}

type krxIssueResponse struct {
	OutBlock1 []krxIssueRow `json:"OutBlock_1"`
}

type krxIssueRow struct {
	ISU_SRT_CD string `json:"ISU_SRT_CD"`
}

// applyIssueFlags marks designated issues in the snapshot. A failed list
// fetch is tolerated: the affected flag stays empty and the related
// exclusion conditions pass, matching a source that reports no designation.
func (c *Client) applyIssueFlags(ctx context.Context, snap map[string]snapshotRow) {
	for _, list := range issueLists {
		body, err := c.postForm(ctx, url.Values{
			"bld":         {list.bld},
			"locale":      {"ko_KR"},
			"mktId":       {"ALL"},
			"csvxls_isNo": {"false"},
		})
		if err != nil {
			c.logger.WithError(err).WithField("list", list.label).Warn("Failed to fetch issue list")
			continue
		}

		var resp krxIssueResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			c.logger.WithError(err).WithField("list", list.label).Warn("Failed to decode issue list")
			continue
		}

		for _, row := range resp.OutBlock1 {
			entry, ok := snap[row.ISU_SRT_CD]
			if !ok {
				continue
			}
			if entry.Status != "" {
				entry.Status += ","
			}
			entry.Status += list.label
			snap[row.ISU_SRT_CD] = entry
		}

		c.logger.WithFields(map[string]interface{}{
			"list":  list.label,
			"count": len(resp.OutBlock1),
		}).Debug("Applied issue flags")
	}
}
