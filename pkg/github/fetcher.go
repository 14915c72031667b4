package github

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"orgdrift/pkg/manifest"
)

// Fetcher assembles a point-in-time snapshot of an organization's live state
type Fetcher struct {
	client *Client

	// OnProgress, when set, is invoked after each team or repository
	// detail listing completes
	OnProgress func(completed, total int)
}

// NewFetcher creates a new Fetcher backed by the given client
func NewFetcher(client *Client) *Fetcher {
	return &Fetcher{client: client}
}

// FetchOrg fetches the live state of an organization as a single snapshot.
// The per-team and per-repository listings run concurrently; the first
// failure cancels all remaining work.
func (f *Fetcher) FetchOrg(ctx context.Context, org string) (*manifest.Org, error) {
	settings, err := f.client.GetOrganization(ctx, org)
	if err != nil {
		return nil, err
	}

	orgMembers, err := f.client.ListMembers(ctx, org)
	if err != nil {
		return nil, err
	}

	teamInfos, err := f.client.ListTeams(ctx, org)
	if err != nil {
		return nil, err
	}

	repoInfos, err := f.client.ListRepositories(ctx, org)
	if err != nil {
		return nil, err
	}

	name := settings.Login
	if name == "" {
		name = org
	}

	snapshot := &manifest.Org{
		Organization: manifest.Organization{
			Name:                         name,
			DefaultRepositoryPermission:  settings.DefaultRepositoryPermission,
			TwoFactorRequired:            boolPtr(settings.TwoFactorRequired),
			MembersCanCreateRepositories: boolPtr(settings.MembersCanCreateRepositories),
		},
	}

	memberSet := make(map[string]bool, len(orgMembers))
	snapshot.Members = make([]manifest.Member, 0, len(orgMembers))
	for _, m := range orgMembers {
		memberSet[strings.ToLower(m.Login)] = true
		snapshot.Members = append(snapshot.Members, manifest.Member{
			Username: m.Login,
			Role:     m.Role,
		})
	}

	snapshot.Teams = make([]manifest.Team, len(teamInfos))
	for i, t := range teamInfos {
		snapshot.Teams[i] = manifest.Team{
			Name:        t.Name,
			Slug:        t.Slug,
			Description: t.Description,
			Parent:      t.ParentSlug,
		}
	}

	snapshot.Repositories = make([]manifest.Repository, len(repoInfos))
	for i, r := range repoInfos {
		snapshot.Repositories[i] = manifest.Repository{
			Name:          r.Name,
			Description:   r.Description,
			Visibility:    r.Visibility,
			DefaultBranch: r.DefaultBranch,
			HasIssues:     boolPtr(r.HasIssues),
			HasWiki:       boolPtr(r.HasWiki),
			HasProjects:   boolPtr(r.HasProjects),
			Archived:      boolPtr(r.Archived),
		}
	}

	jobs := make([]fetchJob, 0, len(snapshot.Teams)+len(snapshot.Repositories))
	for i := range snapshot.Teams {
		jobs = append(jobs, fetchJob{team: &snapshot.Teams[i]})
	}
	for i := range snapshot.Repositories {
		jobs = append(jobs, fetchJob{repo: &snapshot.Repositories[i]})
	}

	if err := f.runJobs(ctx, org, memberSet, jobs); err != nil {
		return nil, err
	}

	sortSnapshot(snapshot)
	return snapshot, nil
}

// fetchJob represents a single per-team or per-repository detail fetch
type fetchJob struct {
	team *manifest.Team
	repo *manifest.Repository
}

// runJobs processes fetch jobs using a bounded worker pool. Each job writes
// into its own manifest element, so workers never share state.
func (f *Fetcher) runJobs(ctx context.Context, org string, memberSet map[string]bool, jobs []fetchJob) error {
	numJobs := len(jobs)
	if numJobs == 0 {
		return nil
	}

	maxWorkers := f.client.limiter.GetStats().MaxConcurrentSlots
	numWorkers := optimalWorkerCount(numJobs, maxWorkers)

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobChan := make(chan fetchJob, numJobs)
	resultChan := make(chan error, numJobs)

	for i := 0; i < numWorkers; i++ {
		go f.worker(workerCtx, org, memberSet, jobChan, resultChan)
	}

	for _, job := range jobs {
		jobChan <- job
	}
	close(jobChan)

	// Collect one result per job; the first failure cancels remaining work
	var firstErr error
	for completed := 0; completed < numJobs; completed++ {
		err := <-resultChan
		if err != nil && firstErr == nil {
			firstErr = err
			cancel()
		}
		if f.OnProgress != nil && firstErr == nil {
			f.OnProgress(completed+1, numJobs)
		}
	}

	return firstErr
}

// worker processes jobs until the job channel closes. Once the context is
// canceled remaining jobs fail immediately instead of issuing API calls.
func (f *Fetcher) worker(ctx context.Context, org string, memberSet map[string]bool, jobs <-chan fetchJob, results chan<- error) {
	for job := range jobs {
		if err := ctx.Err(); err != nil {
			results <- err
			continue
		}

		results <- f.processJob(ctx, org, memberSet, job)
	}
}

// processJob fetches the detail listings for a single team or repository
func (f *Fetcher) processJob(ctx context.Context, org string, memberSet map[string]bool, job fetchJob) error {
	if err := f.client.limiter.AcquireSlot(ctx); err != nil {
		return fmt.Errorf("failed to acquire concurrency slot: %w", err)
	}
	defer f.client.limiter.ReleaseSlot()

	if job.team != nil {
		return f.fetchTeamMembers(ctx, org, job.team)
	}
	return f.fetchRepoAccess(ctx, org, memberSet, job.repo)
}

// fetchTeamMembers fills in the maintainer and member lists for a team
func (f *Fetcher) fetchTeamMembers(ctx context.Context, org string, team *manifest.Team) error {
	maintainers, err := f.client.ListTeamMembers(ctx, org, team.Slug, "maintainer")
	if err != nil {
		return err
	}

	members, err := f.client.ListTeamMembers(ctx, org, team.Slug, "member")
	if err != nil {
		return err
	}

	// Drop logins that appear in both role listings, keeping the maintainer role
	maintainerSet := make(map[string]bool, len(maintainers))
	for _, login := range maintainers {
		maintainerSet[login] = true
	}

	team.Maintainers = maintainers
	team.Members = nil
	for _, login := range members {
		if !maintainerSet[login] {
			team.Members = append(team.Members, login)
		}
	}

	return nil
}

// fetchRepoAccess fills in the team and user grants for a repository
func (f *Fetcher) fetchRepoAccess(ctx context.Context, org string, memberSet map[string]bool, repo *manifest.Repository) error {
	teams, err := f.client.ListRepoTeams(ctx, org, repo.Name)
	if err != nil {
		return err
	}

	collaborators, err := f.client.ListRepoCollaborators(ctx, org, repo.Name)
	if err != nil {
		return err
	}

	repo.Grants = nil
	for _, t := range teams {
		repo.Grants = append(repo.Grants, manifest.Grant{
			Team:       t.TeamSlug,
			Permission: t.Permission,
		})
	}
	for _, c := range collaborators {
		// Outside collaborators are not organization members and are not compared
		if !memberSet[strings.ToLower(c.Username)] {
			continue
		}
		repo.Grants = append(repo.Grants, manifest.Grant{
			User:       c.Username,
			Permission: c.Permission,
		})
	}

	return nil
}

// sortSnapshot orders every list in the snapshot so repeated fetches of the
// same state render identically
func sortSnapshot(snapshot *manifest.Org) {
	sort.Slice(snapshot.Teams, func(i, j int) bool {
		return snapshot.Teams[i].Slug < snapshot.Teams[j].Slug
	})
	sort.Slice(snapshot.Members, func(i, j int) bool {
		return snapshot.Members[i].Username < snapshot.Members[j].Username
	})
	sort.Slice(snapshot.Repositories, func(i, j int) bool {
		return snapshot.Repositories[i].Name < snapshot.Repositories[j].Name
	})

	for i := range snapshot.Teams {
		sort.Strings(snapshot.Teams[i].Maintainers)
		sort.Strings(snapshot.Teams[i].Members)
	}

	for i := range snapshot.Repositories {
		sortGrants(snapshot.Repositories[i].Grants)
	}
}

// sortGrants orders team grants before user grants, each group by principal
func sortGrants(grants []manifest.Grant) {
	sort.Slice(grants, func(i, j int) bool {
		if (grants[i].Team == "") != (grants[j].Team == "") {
			return grants[i].Team != ""
		}
		if grants[i].Team != grants[j].Team {
			return grants[i].Team < grants[j].Team
		}
		return grants[i].User < grants[j].User
	})
}

// optimalWorkerCount sizes the worker pool from CPU count, job count and the
// rate limiter's concurrency budget
func optimalWorkerCount(jobCount, rateLimiterMaxSlots int) int {
	numCPU := runtime.NumCPU()

	// Fetches are I/O bound, so more workers than cores is fine, but never
	// more than the rate limiter allows
	workers := minInt(numCPU*2, rateLimiterMaxSlots)

	if jobCount < 20 {
		workers = minInt(workers, 3)
	} else if jobCount < 100 {
		workers = minInt(workers, numCPU)
	}

	if workers < 1 {
		workers = 1
	}

	return workers
}

// minInt returns the minimum of two integers
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// boolPtr returns a pointer to the given bool
func boolPtr(b bool) *bool {
	return &b
}
